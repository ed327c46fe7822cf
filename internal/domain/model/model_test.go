package model

import (
	"errors"
	"testing"
)

func TestParseFileName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"обычное имя", "data.json", false},
		{"без расширения", "README", false},
		{"точка в начале", ".hidden", false},
		{"кириллица", "отчёт.log", false},
		{"пустое", "", true},
		{"точка", ".", true},
		{"две точки", "..", true},
		{"обход вверх", "../etc/passwd", true},
		{"прямой слэш", "a/b", true},
		{"обратный слэш", `a\b`, true},
		{"NUL", "a\x00b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFileName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidFileName) {
					t.Fatalf("ParseFileName(%q): ожидалась ErrInvalidFileName, получено %v", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFileName(%q): неожиданная ошибка %v", tt.input, err)
			}
			if got.String() != tt.input {
				t.Errorf("ParseFileName(%q) = %q", tt.input, got)
			}
		})
	}
}

func TestParseReport(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantType ReportType
		wantRaw  string
		wantErr  bool
	}{
		{"status", `{"type":"status"}`, ReportStatus, "status", false},
		{"file_transfer", `{"type": "file_transfer"}`, ReportFileTransfer, "file_transfer", false},
		{"неизвестный тип", `{"type":"reboot"}`, ReportUnknown, "reboot", false},
		{"без type", `{"battery":42}`, ReportUnknown, "", false},
		{"пустой объект", ` {} `, ReportUnknown, "", false},
		{"type в другом регистре", `{"type":"STATUS"}`, ReportUnknown, "STATUS", false},
		{"null type", `{"type":null}`, "", "", true},
		{"не JSON", `type=status`, "", "", true},
		{"пустое тело", ``, "", "", true},
		{"обрезанный JSON", `{"type":"status"`, "", "", true},
		{"type не строка", `{"type":5}`, "", "", true},
		{"массив", `["status"]`, "", "", true},
		{"null", `null`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParseReport([]byte(tt.body))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedReport) {
					t.Fatalf("ожидалась ErrMalformedReport, получено %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if r.Type != tt.wantType {
				t.Errorf("Type: ожидалось %q, получено %q", tt.wantType, r.Type)
			}
			if r.RawType != tt.wantRaw {
				t.Errorf("RawType: ожидалось %q, получено %q", tt.wantRaw, r.RawType)
			}
		})
	}
}
