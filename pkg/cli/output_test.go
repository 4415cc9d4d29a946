package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
)

type summary struct {
	Rules int `json:"rules"`
}

func (s summary) String() string { return fmt.Sprintf("%d rules", s.Rules) }

func TestTextFormatter(t *testing.T) {
	formatter := &TextFormatter{}

	output, err := formatter.Format(summary{Rules: 3})
	if err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	expected := "3 rules\n"
	if string(output) != expected {
		t.Errorf("Format() = %q, want %q", string(output), expected)
	}
}

func TestTextFormatterWriter(t *testing.T) {
	formatter := &TextFormatter{}
	buf := &bytes.Buffer{}

	if err := formatter.FormatTo(buf, "test message"); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	expected := "test message\n"
	if buf.String() != expected {
		t.Errorf("FormatTo() = %q, want %q", buf.String(), expected)
	}
}

func TestJSONFormatter(t *testing.T) {
	tests := []struct {
		name   string
		data   any
		indent bool
	}{
		{
			name:   "simple string",
			data:   "test",
			indent: false,
		},
		{
			name: "map with indent",
			data: map[string]string{
				"key": "value",
			},
			indent: true,
		},
		{
			name:   "struct",
			data:   summary{Rules: 42},
			indent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := &JSONFormatter{Indent: tt.indent}
			output, err := formatter.Format(tt.data)
			if err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			var result any
			if err := json.Unmarshal(output, &result); err != nil {
				t.Errorf("Format() produced invalid JSON: %v", err)
			}
		})
	}
}

func TestJSONFormatterWriter(t *testing.T) {
	formatter := &JSONFormatter{Indent: true}
	buf := &bytes.Buffer{}

	if err := formatter.FormatTo(buf, map[string]string{"path": "<a&b>"}); err != nil {
		t.Fatalf("FormatTo() error = %v", err)
	}

	if !bytes.Contains(buf.Bytes(), []byte("<a&b>")) {
		t.Errorf("FormatTo() escaped HTML: %s", buf.String())
	}

	var result map[string]string
	if err := json.Unmarshal(buf.Bytes(), &result); err != nil {
		t.Fatalf("FormatTo() produced invalid JSON: %v", err)
	}
	if result["path"] != "<a&b>" {
		t.Errorf("FormatTo() = %v", result)
	}
}

func TestNewFormatter(t *testing.T) {
	tests := []struct {
		name   string
		format OutputFormat
		want   string
	}{
		{name: "text formatter", format: FormatText, want: "*cli.TextFormatter"},
		{name: "json formatter", format: FormatJSON, want: "*cli.JSONFormatter"},
		{name: "default to text", format: "unknown", want: "*cli.TextFormatter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fmt.Sprintf("%T", NewFormatter(tt.format))
			if got != tt.want {
				t.Errorf("NewFormatter(%q) type = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    OutputFormat
		wantErr bool
	}{
		{input: "", want: FormatText},
		{input: "text", want: FormatText},
		{input: "json", want: FormatJSON},
		{input: "csv", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
