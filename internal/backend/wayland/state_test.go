package wayland

import (
	"errors"
	"testing"
)

func TestSurfaceNotReadyBeforeConfigure(t *testing.T) {
	slot := &SurfaceSlot{OutputGlobal: 1}
	if slot.Ready() {
		t.Fatal("unconfigured surface must not be ready")
	}
	slot.ApplyFrameDone()
	if slot.Ready() {
		t.Fatal("frame done before configure must not make the surface ready")
	}
}

func TestSurfaceConfigureMakesReady(t *testing.T) {
	slot := &SurfaceSlot{OutputGlobal: 1}
	slot.ApplyConfigure()
	if !slot.Ready() {
		t.Fatal("configured surface must be ready for its first paint")
	}
}

func TestMarkPresentedClearsRedrawAndArmsCallback(t *testing.T) {
	slot := &SurfaceSlot{OutputGlobal: 1}
	slot.ApplyConfigure()

	armed := 0
	arm := func() (*Callback, error) { armed++; return nil, nil }

	if err := slot.MarkPresented(arm); err != nil {
		t.Fatalf("MarkPresented: %v", err)
	}
	if slot.Ready() {
		t.Fatal("presented surface must not stay ready")
	}
	if armed != 1 || !slot.FramePending {
		t.Fatalf("expected one armed callback, got armed=%d pending=%v", armed, slot.FramePending)
	}

	// A second present with the callback still outstanding must not arm
	// another one.
	slot.NeedsRedraw = true
	if err := slot.MarkPresented(arm); err != nil {
		t.Fatalf("MarkPresented: %v", err)
	}
	if armed != 1 {
		t.Fatalf("callback armed twice, got %d", armed)
	}
}

func TestMarkPresentedPropagatesArmError(t *testing.T) {
	slot := &SurfaceSlot{OutputGlobal: 1}
	slot.ApplyConfigure()
	wantErr := errors.New("socket gone")
	if err := slot.MarkPresented(func() (*Callback, error) { return nil, wantErr }); !errors.Is(err, wantErr) {
		t.Fatalf("got %v, want %v", err, wantErr)
	}
	if slot.FramePending {
		t.Fatal("failed arm must not record a pending callback")
	}
}

func TestFrameDoneReArmsRedraw(t *testing.T) {
	slot := &SurfaceSlot{OutputGlobal: 1}
	slot.ApplyConfigure()
	if err := slot.MarkPresented(func() (*Callback, error) { return nil, nil }); err != nil {
		t.Fatalf("MarkPresented: %v", err)
	}

	slot.ApplyFrameDone()
	if !slot.Ready() {
		t.Fatal("frame callback must make a configured surface ready again")
	}
	if slot.FramePending {
		t.Fatal("frame callback must clear the pending flag")
	}
}

func TestClosedUnregistersPendingCallback(t *testing.T) {
	conn := &Conn{handlers: map[uint32]eventHandler{}}
	cb := newCallback(conn)
	if _, ok := conn.handlers[cb.id]; !ok {
		t.Fatal("new callback not registered on the connection")
	}

	slot := &SurfaceSlot{OutputGlobal: 1}
	slot.ApplyConfigure()
	if err := slot.MarkPresented(func() (*Callback, error) { return cb, nil }); err != nil {
		t.Fatalf("MarkPresented: %v", err)
	}

	slot.ApplyClosed()
	if _, ok := conn.handlers[cb.id]; ok {
		t.Fatal("closed surface left its frame callback registered")
	}

	// A fired callback unregisters itself; a close racing in afterwards
	// must not touch the handler table again.
	slot.ApplyConfigure()
	cb2 := newCallback(conn)
	if err := slot.MarkPresented(func() (*Callback, error) { return cb2, nil }); err != nil {
		t.Fatalf("MarkPresented: %v", err)
	}
	cb2.handleEvent(0, &reader{})
	if _, ok := conn.handlers[cb2.id]; ok {
		t.Fatal("fired callback still registered")
	}
	slot.ApplyClosed()
	if len(conn.handlers) != 0 {
		t.Fatalf("handler table not empty after close: %d entries", len(conn.handlers))
	}
}

func TestClosedClearsAllState(t *testing.T) {
	slot := &SurfaceSlot{OutputGlobal: 1}
	slot.ApplyConfigure()
	if err := slot.MarkPresented(func() (*Callback, error) { return nil, nil }); err != nil {
		t.Fatalf("MarkPresented: %v", err)
	}

	slot.ApplyClosed()
	if slot.Configured || slot.NeedsRedraw || slot.FramePending {
		t.Fatalf("closed surface must drop all state, got %+v", slot)
	}
	slot.ApplyFrameDone()
	if slot.Ready() {
		t.Fatal("a late frame callback on a closed surface must not revive it")
	}
}

func TestReadyOutputsKeepsDiscoveryOrder(t *testing.T) {
	st := newState()
	for _, id := range []uint32{7, 3, 9} {
		st.outputs[id] = &OutputSlot{GlobalName: id}
		st.outputOrder = append(st.outputOrder, id)
		slot := &SurfaceSlot{OutputGlobal: id}
		slot.ApplyConfigure()
		st.surfaces = append(st.surfaces, slot)
	}

	got := st.ReadyOutputs()
	want := []uint32{7, 3, 9}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}

	st.SurfaceFor(3).MarkPresented(nil)
	got = st.ReadyOutputs()
	if len(got) != 2 || got[0] != 7 || got[1] != 9 {
		t.Fatalf("after presenting output 3: got %v, want [7 9]", got)
	}
}

func TestRefreshHzRounds(t *testing.T) {
	cases := []struct {
		milliHz int32
		want    uint32
	}{
		{60000, 60},
		{59940, 60},
		{143999, 144},
		{0, 1},
		{-1, 1},
	}
	for _, tc := range cases {
		if got := refreshHz(tc.milliHz); got != tc.want {
			t.Errorf("refreshHz(%d) = %d, want %d", tc.milliHz, got, tc.want)
		}
	}
}
