package cli

import (
	"bytes"
	"encoding/json"
	"testing"
)

type stringer struct{ v string }

func (s stringer) String() string { return "<" + s.v + ">" }

func TestTextFormatter(t *testing.T) {
	tests := []struct {
		name string
		data any
		want string
	}{
		{name: "string", data: "Ack", want: "Ack\n"},
		{name: "stringer", data: stringer{v: "x"}, want: "<x>\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			if err := (&TextFormatter{}).FormatTo(buf, tt.data); err != nil {
				t.Fatalf("FormatTo() error = %v", err)
			}
			if buf.String() != tt.want {
				t.Errorf("FormatTo() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestJSONFormatter(t *testing.T) {
	data := map[string]string{"version": "1.0.0"}

	for _, indent := range []bool{false, true} {
		out, err := (&JSONFormatter{Indent: indent}).Format(data)
		if err != nil {
			t.Fatalf("Format() error = %v", err)
		}
		var got map[string]string
		if err := json.Unmarshal(out, &got); err != nil {
			t.Fatalf("output is not JSON: %v", err)
		}
		if got["version"] != "1.0.0" {
			t.Errorf("version = %q", got["version"])
		}
		if indent != bytes.Contains(out, []byte("\n  ")) {
			t.Errorf("indent=%v but output = %q", indent, out)
		}
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{in: "", want: FormatText},
		{in: "text", want: FormatText},
		{in: "json", want: FormatJSON},
		{in: "csv", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewFormatter(t *testing.T) {
	if _, ok := NewFormatter(FormatJSON).(*JSONFormatter); !ok {
		t.Error("NewFormatter(json) is not a JSONFormatter")
	}
	if _, ok := NewFormatter(FormatText).(*TextFormatter); !ok {
		t.Error("NewFormatter(text) is not a TextFormatter")
	}
}
