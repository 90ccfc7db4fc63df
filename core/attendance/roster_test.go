package attendance

import (
	"strconv"
	"strings"
	"testing"
)

var sampleEntries = []Entry{
	{Surname: "OKAFOR", FirstName: "CHINEDU", MiddleName: "PAUL", Matric: "20191234567", Timestamp: "2026-03-16 09:00:03"},
	{Surname: "BELLO", FirstName: "AISHA", MiddleName: "", Matric: "20197654321", Timestamp: "2026-03-16 09:00:41"},
	{Surname: "EZE", FirstName: "IFEOMA", MiddleName: "GRACE", Matric: "2019/ND/555", Timestamp: "2026-03-16 09:01:15"},
}

func TestRosterRoundTrip(t *testing.T) {
	data, err := marshalEntries(sampleEntries)
	if err != nil {
		t.Fatalf("marshalEntries() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if want := len(sampleEntries) + 1; len(lines) != want {
		t.Fatalf("got %d lines, want %d", len(lines), want)
	}
	if lines[0] != "S/N,Surname,First Name,Middle Name,Matric Number,Timestamp" {
		t.Errorf("unexpected header: %s", lines[0])
	}
	// ordinals are positional
	for i, line := range lines[1:] {
		if !strings.HasPrefix(line, strconv.Itoa(i+1)+",") {
			t.Errorf("row %d does not start with its ordinal: %s", i+1, line)
		}
	}

	got, err := unmarshalEntries(data)
	if err != nil {
		t.Fatalf("unmarshalEntries() failed: %v", err)
	}
	if len(got) != len(sampleEntries) {
		t.Fatalf("got %d entries, want %d", len(got), len(sampleEntries))
	}
	for i := range got {
		if got[i] != sampleEntries[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], sampleEntries[i])
		}
	}
}

func TestUnmarshalEntries(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{name: "empty file", data: "", want: 0},
		{name: "header only", data: "S/N,Surname,First Name,Middle Name,Matric Number,Timestamp\n", want: 0},
		{name: "short row skipped", data: "S/N,Surname,First Name,Middle Name,Matric Number,Timestamp\n1,OKAFOR\n", want: 0},
		{
			name: "one entry",
			data: "S/N,Surname,First Name,Middle Name,Matric Number,Timestamp\n1,OKAFOR,CHINEDU,PAUL,20191234567,2026-03-16 09:00:03\n",
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := unmarshalEntries([]byte(tt.data))
			if err != nil {
				t.Fatalf("unmarshalEntries() failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestHasDupName(t *testing.T) {
	tests := []struct {
		name    string
		surname string
		first   string
		middle  string
		want    bool
	}{
		{name: "exact duplicate", surname: "OKAFOR", first: "CHINEDU", middle: "PAUL", want: true},
		{name: "case and space insensitive", surname: " okafor ", first: "Chinedu", middle: "paul", want: true},
		{name: "different middle name", surname: "OKAFOR", first: "CHINEDU", middle: "JOHN", want: false},
		{name: "missing middle vs present", surname: "OKAFOR", first: "CHINEDU", middle: "", want: false},
		{name: "new student", surname: "ADEYEMI", first: "TUNDE", middle: "", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasDupName(tt.surname, tt.first, tt.middle, sampleEntries); got != tt.want {
				t.Errorf("hasDupName() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHasDupMatric(t *testing.T) {
	tests := []struct {
		name   string
		matric string
		want   bool
	}{
		{name: "exact duplicate", matric: "20191234567", want: true},
		{name: "case and space insensitive", matric: " 2019/nd/555 ", want: true},
		{name: "new matric", matric: "20200000001", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hasDupMatric(tt.matric, sampleEntries); got != tt.want {
				t.Errorf("hasDupMatric() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExcluding(t *testing.T) {
	others := excluding(sampleEntries, 1)
	if len(others) != 2 {
		t.Fatalf("got %d entries, want 2", len(others))
	}
	if others[0] != sampleEntries[0] || others[1] != sampleEntries[2] {
		t.Errorf("excluding() kept the wrong entries: %+v", others)
	}
	if hasDupMatric(sampleEntries[1].Matric, others) {
		t.Error("excluded entry still detected as duplicate")
	}
}

func TestRenderRoster(t *testing.T) {
	rows := renderRoster(sampleEntries)
	for i, row := range rows {
		if row.SN != i+1 {
			t.Errorf("row %d SN = %d, want %d", i, row.SN, i+1)
		}
	}
	if len(renderRoster(nil)) != 0 {
		t.Error("renderRoster(nil) should be empty")
	}
}
