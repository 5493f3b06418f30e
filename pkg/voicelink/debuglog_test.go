package voicelink

import (
	"fmt"
	"strings"
	"testing"
)

func TestDebugLog_Ring(t *testing.T) {
	l := NewDebugLog(3)
	for i := range 5 {
		l.Add(fmt.Sprintf("line %d", i))
	}
	if got := l.Len(); got != 3 {
		t.Errorf("Len() = %d; want 3", got)
	}
	entries := l.Entries()
	var got []string
	for _, e := range entries {
		got = append(got, e.Message)
	}
	if strings.Join(got, ",") != "line 2,line 3,line 4" {
		t.Errorf("Entries() = %v; want lines 2..4", got)
	}
}

func TestDebugLog_DefaultSize(t *testing.T) {
	l := NewDebugLog(0)
	for range 20 {
		l.Add("x")
	}
	if got := l.Len(); got != DefaultDebugLogSize {
		t.Errorf("Len() = %d; want %d", got, DefaultDebugLogSize)
	}
}

func TestDebugEntry_String(t *testing.T) {
	l := NewDebugLog(1)
	l.Add("connected")
	got := l.Entries()[0].String()
	if !strings.HasPrefix(got, "[") || !strings.HasSuffix(got, "] connected") || len(got) != len("[15:04:05] connected") {
		t.Errorf("String() = %q; want [hh:mm:ss] connected", got)
	}
}

func TestTeeLogger(t *testing.T) {
	l := NewDebugLog(10)
	log := teeLogger{Logger: nopLogger{}, log: l}
	log.DebugPrintf("hidden")
	log.InfoPrintf("info %d", 1)
	log.WarnPrintf("careful")
	log.ErrorPrintf("broken")

	var got []string
	for _, e := range l.Entries() {
		got = append(got, e.Message)
	}
	want := "info 1|WARN careful|ERROR broken"
	if strings.Join(got, "|") != want {
		t.Errorf("entries = %q; want %q", strings.Join(got, "|"), want)
	}
}
