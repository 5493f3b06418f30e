package voicelink

import (
	"errors"
	"fmt"
	"slices"
	"testing"
	"testing/synctest"
	"time"
)

func TestCaptureController_Chunks(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeSource{}
		rec := &recorder{}
		c := NewCaptureController(src, DefaultChunkInterval, rec.post, nopLogger{}, nil)

		c.Start(1)
		synctest.Wait()
		if got := len(eventsOf[CaptureStarted](rec)); got != 1 {
			t.Fatalf("CaptureStarted events = %d; want 1", got)
		}
		dev := src.last()

		time.Sleep(100 * time.Millisecond)
		dev.push([]byte("ab"))
		dev.push([]byte("cd"))
		time.Sleep(250 * time.Millisecond)
		synctest.Wait()

		// An interval without audio produces no chunk.
		time.Sleep(250 * time.Millisecond)
		synctest.Wait()

		dev.push([]byte("ef"))
		time.Sleep(250 * time.Millisecond)
		synctest.Wait()

		chunks := eventsOf[ChunkCaptured](rec)
		if len(chunks) != 2 {
			t.Fatalf("ChunkCaptured events = %d; want 2", len(chunks))
		}
		if got := string(chunks[0].Data); got != "abcd" {
			t.Errorf("chunk 0 = %q; want %q", got, "abcd")
		}
		if got := string(chunks[1].Data); got != "ef" {
			t.Errorf("chunk 1 = %q; want %q", got, "ef")
		}
		c.Stop()
		synctest.Wait()
	})
}

func TestCaptureController_StopFlushesFinalChunk(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeSource{}
		rec := &recorder{}
		c := NewCaptureController(src, DefaultChunkInterval, rec.post, nopLogger{}, nil)

		c.Start(7)
		synctest.Wait()
		dev := src.last()
		dev.push([]byte("tail"))
		synctest.Wait()

		if !c.Stop() {
			t.Fatal("Stop() = false; want true")
		}
		if c.Stop() {
			t.Error("second Stop() = true; want false")
		}
		synctest.Wait()

		if got := dev.closeCount(); got != 1 {
			t.Errorf("device closed %d times; want 1", got)
		}
		events := rec.all()
		if len(events) != 3 {
			t.Fatalf("events = %#v; want started, chunk, released", events)
		}
		chunk, ok := events[1].(ChunkCaptured)
		if !ok || string(chunk.Data) != "tail" || chunk.Attempt != 7 {
			t.Errorf("events[1] = %#v; want final chunk of attempt 7", events[1])
		}
		rel, ok := events[2].(CaptureReleased)
		if !ok || rel.Ended || rel.Attempt != 7 {
			t.Errorf("events[2] = %#v; want CaptureReleased of attempt 7", events[2])
		}
		if c.Active() {
			t.Error("Active() = true after Stop; want false")
		}
	})
}

func TestCaptureController_EndOfInput(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeSource{}
		rec := &recorder{}
		c := NewCaptureController(src, DefaultChunkInterval, rec.post, nopLogger{}, nil)

		c.Start(1)
		synctest.Wait()
		dev := src.last()
		dev.push([]byte("xyz"))
		synctest.Wait()
		dev.finish(nil)
		synctest.Wait()

		chunks := eventsOf[ChunkCaptured](rec)
		if len(chunks) != 1 || string(chunks[0].Data) != "xyz" {
			t.Errorf("chunks = %#v; want one chunk xyz", chunks)
		}
		rel := eventsOf[CaptureReleased](rec)
		if len(rel) != 1 || !rel[0].Ended {
			t.Errorf("CaptureReleased events = %#v; want one with Ended", rel)
		}
		if c.Active() {
			t.Error("Active() = true after end of input; want false")
		}
	})
}

func TestCaptureController_ReadFailure(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeSource{}
		rec := &recorder{}
		c := NewCaptureController(src, DefaultChunkInterval, rec.post, nopLogger{}, nil)

		c.Start(1)
		synctest.Wait()
		src.last().finish(fmt.Errorf("stream: %w", ErrDeviceNotFound))
		synctest.Wait()

		failed := eventsOf[CaptureFailed](rec)
		if len(failed) != 1 {
			t.Fatalf("CaptureFailed events = %d; want 1", len(failed))
		}
		if got := failed[0].Err.Kind; got != CaptureErrorDeviceNotFound {
			t.Errorf("kind = %v; want %v", got, CaptureErrorDeviceNotFound)
		}
		if got := len(eventsOf[CaptureReleased](rec)); got != 1 {
			t.Errorf("CaptureReleased events = %d; want 1", got)
		}
	})
}

func TestCaptureController_OpenFailure(t *testing.T) {
	tests := []struct {
		err    error
		kind   CaptureErrorKind
		reason string
	}{
		{ErrPermissionDenied, CaptureErrorPermissionDenied, "Permission denied"},
		{fmt.Errorf("portaudio: %w", ErrDeviceNotFound), CaptureErrorDeviceNotFound, "No microphone found"},
		{errors.New("device busy"), CaptureErrorOther, "Could not access microphone"},
		{&CaptureError{Kind: CaptureErrorPermissionDenied}, CaptureErrorPermissionDenied, "Permission denied"},
	}
	for _, tt := range tests {
		synctest.Test(t, func(t *testing.T) {
			src := &fakeSource{err: tt.err}
			rec := &recorder{}
			c := NewCaptureController(src, DefaultChunkInterval, rec.post, nopLogger{}, nil)

			c.Start(3)
			synctest.Wait()

			events := rec.all()
			if len(events) != 1 {
				t.Fatalf("%v: events = %#v; want one CaptureFailed", tt.err, events)
			}
			failed, ok := events[0].(CaptureFailed)
			if !ok {
				t.Fatalf("%v: event = %#v; want CaptureFailed", tt.err, events[0])
			}
			if failed.Attempt != 3 {
				t.Errorf("%v: attempt = %d; want 3", tt.err, failed.Attempt)
			}
			if failed.Err.Kind != tt.kind {
				t.Errorf("%v: kind = %v; want %v", tt.err, failed.Err.Kind, tt.kind)
			}
			if got := failed.Err.Kind.Reason(); got != tt.reason {
				t.Errorf("%v: reason = %q; want %q", tt.err, got, tt.reason)
			}
			if c.Active() {
				t.Errorf("%v: Active() = true; want false", tt.err)
			}
		})
	}
}

func TestCaptureController_StopWhileRequesting(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeSource{gate: make(chan struct{})}
		rec := &recorder{}
		c := NewCaptureController(src, DefaultChunkInterval, rec.post, nopLogger{}, nil)

		c.Start(1)
		synctest.Wait()
		c.Stop()
		synctest.Wait()

		if events := rec.all(); len(events) != 0 {
			t.Errorf("events = %#v; want none", events)
		}
		if got := src.opened(); got != 0 {
			t.Errorf("devices opened = %d; want 0", got)
		}
	})
}

func TestCaptureController_RestartStopsPrevious(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		src := &fakeSource{}
		rec := &recorder{}
		c := NewCaptureController(src, DefaultChunkInterval, rec.post, nopLogger{}, nil)

		c.Start(1)
		synctest.Wait()
		first := src.last()
		c.Start(2)
		synctest.Wait()

		if got := first.closeCount(); got != 1 {
			t.Errorf("first device closed %d times; want 1", got)
		}
		var attempts []uint64
		for _, e := range eventsOf[CaptureStarted](rec) {
			attempts = append(attempts, e.Attempt)
		}
		if !slices.Equal(attempts, []uint64{1, 2}) {
			t.Errorf("started attempts = %v; want [1 2]", attempts)
		}
		c.Stop()
		synctest.Wait()
	})
}
