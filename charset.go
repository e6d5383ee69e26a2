// Copyright 2026 Conductor OSS
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package markitdown

import (
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/encoding/unicode"
)

// decodeText turns raw bytes into UTF-8, trusting the charset hint first
// and falling back to detection.
func decodeText(data []byte, charset string) string {
	if charset != "" {
		if enc := lookupEncoding(charset); enc != nil {
			if decoded, err := enc.NewDecoder().Bytes(data); err == nil {
				return string(decoded)
			}
		}
	}
	return decodeWithDetection(data)
}

// decodeWithDetection detects the encoding of data and decodes it to UTF-8.
func decodeWithDetection(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}

	results, err := chardet.NewTextDetector().DetectAll(data)
	if err != nil || len(results) == 0 {
		return string(data)
	}

	// chardet often ranks Latin encodings above the right CJK one, so every
	// candidate is decoded and scored on how coherent the output looks.
	best, bestScore := "", -1<<31
	for _, r := range results {
		enc := lookupEncoding(r.Charset)
		if enc == nil {
			continue
		}
		decoded, err := enc.NewDecoder().Bytes(data)
		if err != nil {
			continue
		}
		text := string(decoded)
		if score := scoreDecodedText(text, r.Confidence); score > bestScore {
			best, bestScore = text, score
		}
	}
	if best == "" {
		return string(data)
	}
	return best
}

// commonCJK holds frequent Han characters from Chinese and Japanese text.
// Hitting them is a strong sign the decoding was right.
const commonCJK = "的一是不了人我在有他这中大来上个国到说们为你对生能地下过子" +
	"那要就出会也好开后还事多么然于心可她自之年时发作里如果所" +
	"名前年齢住所東京大阪三木英子佐藤太郎橋淳古屋北海道田中山本" +
	"高野村松井川口石原林森小左右男女白黒赤青金木水火土目" +
	"日月学方去手電話会社員店場所駅道町市区県世界本物花鳥魚"

// scoreDecodedText rates decoded text: higher means more plausible.
func scoreDecodedText(text string, confidence int) int {
	score := confidence
	for _, r := range text {
		switch {
		case r == utf8.RuneError:
			score -= 10
		case r < 0x20 && r != '\n' && r != '\r' && r != '\t':
			score -= 5
		case r >= 0x3040 && r <= 0x30FF, r >= 0xFF00 && r <= 0xFFEF:
			// kana and fullwidth forms
			score += 5
		case r >= 0x4E00 && r <= 0x9FFF:
			if strings.ContainsRune(commonCJK, r) {
				score += 5
			} else {
				score++
			}
		case r >= 'A' && r <= 'z':
			score++
		}
	}
	return score
}

var encodings = map[string]encoding.Encoding{
	"utf8":         unicode.UTF8,
	"utf8bom":      unicode.UTF8,
	"ascii":        unicode.UTF8,
	"usascii":      unicode.UTF8,
	"utf16le":      unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf16be":      unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"iso88591":     charmap.ISO8859_1,
	"latin1":       charmap.ISO8859_1,
	"iso88592":     charmap.ISO8859_2,
	"iso88595":     charmap.ISO8859_5,
	"iso88596":     charmap.ISO8859_6,
	"iso88597":     charmap.ISO8859_7,
	"iso88598":     charmap.ISO8859_8,
	"iso88599":     charmap.ISO8859_9,
	"iso885915":    charmap.ISO8859_15,
	"windows1250":  charmap.Windows1250,
	"cp1250":       charmap.Windows1250,
	"windows1251":  charmap.Windows1251,
	"cp1251":       charmap.Windows1251,
	"windows1252":  charmap.Windows1252,
	"cp1252":       charmap.Windows1252,
	"windows1253":  charmap.Windows1253,
	"windows1254":  charmap.Windows1254,
	"windows1255":  charmap.Windows1255,
	"windows1256":  charmap.Windows1256,
	"koi8r":        charmap.KOI8R,
	"shiftjis":     japanese.ShiftJIS,
	"shiftjis2004": japanese.ShiftJIS,
	"sjis":         japanese.ShiftJIS,
	"cp932":        japanese.ShiftJIS,
	"windows31j":   japanese.ShiftJIS,
	"eucjp":        japanese.EUCJP,
	"iso2022jp":    japanese.ISO2022JP,
	"euckr":        korean.EUCKR,
	"cp949":        korean.EUCKR,
	"gb2312":       simplifiedchinese.GBK,
	"gbk":          simplifiedchinese.GBK,
	"cp936":        simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"big5":         traditionalchinese.Big5,
	"cp950":        traditionalchinese.Big5,
}

// lookupEncoding maps charset names to Go encoding implementations.
func lookupEncoding(charset string) encoding.Encoding {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "").Replace(charset))
	return encodings[key]
}
