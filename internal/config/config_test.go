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

package config

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gwerrors "github.com/nicholasgasior/markitdown-server/internal/errors"
)

func fullDefaults() Effective {
	return Effective{
		DocIntelEndpoint: String("https://default.example.com"),
		DocIntelKey:      String("default-key"),
		LLMAPIKey:        String("sk-default"),
		LLMModel:         String("gpt-4o"),
		LLMPrompt:        String("describe"),
		KeepDataURIs:     Bool(true),
		EnablePlugins:    Bool(true),
	}
}

func TestMerge_EmptyOverrideKeepsDefault(t *testing.T) {
	t.Parallel()

	def := fullDefaults()
	assert.Equal(t, def, Merge(def, nil))
	assert.Equal(t, def, Merge(def, &Effective{}))
	assert.Equal(t, Effective{}, Merge(Effective{}, &Effective{}))
}

func TestMerge_EachFieldOverridesOnlyItself(t *testing.T) {
	t.Parallel()

	def := fullDefaults()
	typ := reflect.TypeOf(Effective{})

	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		t.Run(field.Name, func(t *testing.T) {
			t.Parallel()

			var override Effective
			ov := reflect.ValueOf(&override).Elem().Field(i)
			switch field.Type.Elem().Kind() {
			case reflect.String:
				ov.Set(reflect.ValueOf(String("override")))
			case reflect.Bool:
				ov.Set(reflect.ValueOf(Bool(false)))
			default:
				t.Fatalf("unexpected field type %s", field.Type)
			}

			got := reflect.ValueOf(Merge(def, &override))
			want := reflect.ValueOf(def)
			for j := 0; j < typ.NumField(); j++ {
				if j == i {
					assert.Equal(t, ov.Elem().Interface(), got.Field(j).Elem().Interface(), typ.Field(j).Name)
					continue
				}
				assert.Equal(t, want.Field(j).Interface(), got.Field(j).Interface(), typ.Field(j).Name)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	def := fullDefaults()
	override := &Effective{LLMModel: String("gpt-4.1")}
	_ = Merge(def, override)

	assert.Equal(t, "gpt-4o", *def.LLMModel)
	assert.Equal(t, "gpt-4.1", *override.LLMModel)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	env := map[string]string{
		EnvAPIKey:           "secret",
		EnvDocIntelEndpoint: "https://di.example.com",
		EnvDocIntelKey:      "",
		EnvOpenAIModel:      "gpt-4o",
	}
	p := Load(func(name string) string { return env[name] })

	assert.Equal(t, "secret", p.APIKey)
	require.NotNil(t, p.Defaults.DocIntelEndpoint)
	assert.Equal(t, "https://di.example.com", *p.Defaults.DocIntelEndpoint)
	assert.Nil(t, p.Defaults.DocIntelKey, "empty variables are unset")
	assert.Nil(t, p.Defaults.LLMAPIKey)
	assert.Equal(t, "gpt-4o", *p.Defaults.LLMModel)
	assert.Nil(t, p.Defaults.LLMPrompt)
	assert.True(t, *p.Defaults.KeepDataURIs)
	assert.True(t, *p.Defaults.EnablePlugins)
}

func TestParseOverride(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    *Effective
		wantMsg string
	}{
		{name: "empty", raw: "", want: nil},
		{name: "whitespace", raw: "   ", want: nil},
		{name: "null", raw: "null", want: nil},
		{
			name: "fields",
			raw:  `{"llm_model":"gpt-4o","keep_data_uris":false,"unknown":1}`,
			want: &Effective{LLMModel: String("gpt-4o"), KeepDataURIs: Bool(false)},
		},
		{name: "malformed", raw: `{"llm_model":`, wantMsg: "Invalid JSON in config field"},
		{name: "not json", raw: `not-json`, wantMsg: "Invalid JSON in config field"},
		{name: "wrong type", raw: `{"keep_data_uris":"yes"}`, wantMsg: "Invalid config: "},
		{name: "wrong shape", raw: `[1,2]`, wantMsg: "Invalid config: "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := ParseOverride(tt.raw)
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.True(t, gwerrors.IsUnprocessable(err))
				assert.Contains(t, gwerrors.Detail(err), tt.wantMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
