package internal

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/linkmark/internal/apperr"
	"github.com/starford/linkmark/internal/serialize"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	f, err := cfg.Output.SerializeFormat()
	if err != nil {
		t.Fatal(err)
	}
	if f.Kind != serialize.Delimited || f.Delimiter != ',' || !f.QuoteFields {
		t.Errorf("default format = %+v", f)
	}
}

func TestOutputConfig_SerializeFormat(t *testing.T) {
	c := OutputConfig{Format: "jsonl"}
	f, err := c.SerializeFormat()
	if err != nil {
		t.Fatalf("json-lines without delimiter should pass: %v", err)
	}
	if f.Kind != serialize.JSONLines {
		t.Errorf("kind = %q", f.Kind)
	}

	c = OutputConfig{Format: "tsv", Delimiter: `\t`, FieldOrder: []string{"url", "line"}, Header: true}
	f, err = c.SerializeFormat()
	if err != nil {
		t.Fatal(err)
	}
	if f.Delimiter != '\t' || len(f.FieldOrder) != 2 || !f.Header {
		t.Errorf("format = %+v", f)
	}
}

func TestOutputConfig_Invalid(t *testing.T) {
	cases := map[string]OutputConfig{
		"unknown format":  {Format: "xml", Delimiter: ","},
		"empty format":    {Delimiter: ","},
		"long delimiter":  {Format: "delimited", Delimiter: "::"},
		"quote delimiter": {Format: "delimited", Delimiter: `"`},
		"missing delim":   {Format: "delimited"},
		"unknown field":   {Format: "delimited", Delimiter: ",", FieldOrder: []string{"url", "colour"}},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestOutputConfig_ErrorsAreInvalidConfig(t *testing.T) {
	c := OutputConfig{Format: "delimited", Delimiter: ",", FieldOrder: []string{"nope"}}
	_, err := c.SerializeFormat()
	if !errors.Is(err, apperr.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

func TestInputConfig_Validate(t *testing.T) {
	c := InputConfig{Root: "docs", Patterns: []string{"**/*.md"}, Excludes: []string{"drafts/**"}}
	if err := c.Validate(); err != nil {
		t.Fatalf("valid input: %v", err)
	}
	c.Patterns = []string{"[unclosed"}
	if err := c.Validate(); err == nil {
		t.Error("bad pattern should fail")
	}
	c = InputConfig{Root: "", Patterns: []string{"*.md"}}
	if err := c.Validate(); err == nil {
		t.Error("empty root should fail")
	}
	c = InputConfig{Root: ".", Workers: -1}
	if err := c.Validate(); err == nil {
		t.Error("negative workers should fail")
	}
}
