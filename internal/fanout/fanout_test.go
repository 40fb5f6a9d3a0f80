package fanout

import "testing"

func TestAttachSendsPrimingFrameFirst(t *testing.T) {
	f := New(4)
	sub := f.Attach()

	frame := <-sub.Frames()
	if len(frame) != frameSize {
		t.Fatalf("priming frame len = %d, want %d", len(frame), frameSize)
	}
	for _, b := range frame {
		if b != 0 {
			t.Fatalf("priming frame not all-zero")
		}
	}
}

func TestSendDeliversInOrder(t *testing.T) {
	f := New(4)
	sub := f.Attach()
	<-sub.Frames() // drain priming frame

	f.Send([]byte{1})
	f.Send([]byte{2})
	f.Send([]byte{3})

	for _, want := range [][]byte{{1}, {2}, {3}} {
		got := <-sub.Frames()
		if got[0] != want[0] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestSendDropsOldestOnOverflow(t *testing.T) {
	f := New(2)
	sub := f.Attach()
	<-sub.Frames() // drain priming frame

	f.Send([]byte{1})
	f.Send([]byte{2})
	f.Send([]byte{3}) // queue depth 2: should drop frame 1

	first := <-sub.Frames()
	second := <-sub.Frames()
	if first[0] != 2 || second[0] != 3 {
		t.Fatalf("got %v, %v; want drop-oldest to leave [2 3]", first, second)
	}
	if f.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", f.Dropped())
	}
}

func TestAttachReplacesExistingSubscriber(t *testing.T) {
	f := New(4)
	first := f.Attach()
	second := f.Attach()

	select {
	case reason := <-first.Closed():
		if reason != CloseReplaced {
			t.Fatalf("close reason = %v, want CloseReplaced", reason)
		}
	default:
		t.Fatal("expected first subscriber to be closed on replacement")
	}

	primer := <-second.Frames()
	if len(primer) != frameSize {
		t.Fatalf("second subscriber priming frame len = %d, want %d", len(primer), frameSize)
	}
}

func TestSendWithNoSubscriberIsNoop(t *testing.T) {
	f := New(4)
	f.Send([]byte{1}) // must not panic or block
}

func TestDetachClearsCurrentWithoutClosing(t *testing.T) {
	f := New(4)
	sub := f.Attach()
	f.Detach(sub)

	select {
	case <-sub.Closed():
		t.Fatal("Detach must not close the subscriber")
	default:
	}
}
