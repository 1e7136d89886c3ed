package registry

import (
	"context"
	"testing"

	"github.com/practical-imaging/dicomindex/types"
)

func TestRegisterAndDispatch(t *testing.T) {
	r := New()
	tag := types.TagInstanceUID

	var got []string
	r.Register(tag, func(tag types.Tag, vr string, value []byte) {
		got = append(got, "first:"+string(value))
	})
	r.Register(tag, func(tag types.Tag, vr string, value []byte) {
		got = append(got, "second:"+string(value))
	})

	r.Dispatch(context.Background(), tag, types.VR_UI, []byte("1.2.3"))

	want := []string{"first:1.2.3", "second:1.2.3"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("dispatch order = %v, want %v (registration order)", got, want)
	}
}

func TestDispatchFallsBackToDefault(t *testing.T) {
	r := New()
	var defaultCalls int
	r.RegisterDefault(func(tag types.Tag, vr string, value []byte) {
		defaultCalls++
	})

	r.Dispatch(context.Background(), types.Tag{Group: 0x0009, Element: 0x0001}, types.VR_UN, nil)

	if defaultCalls != 1 {
		t.Errorf("default callback calls = %d, want 1", defaultCalls)
	}
}

func TestDispatchPrefersSpecificOverDefault(t *testing.T) {
	r := New()
	var specificCalls, defaultCalls int
	tag := types.TagSeriesUID

	r.Register(tag, func(types.Tag, string, []byte) { specificCalls++ })
	r.RegisterDefault(func(types.Tag, string, []byte) { defaultCalls++ })

	r.Dispatch(context.Background(), tag, types.VR_UI, nil)

	if specificCalls != 1 || defaultCalls != 0 {
		t.Errorf("specific calls = %d, default calls = %d, want 1/0", specificCalls, defaultCalls)
	}
}

func TestHasCallback(t *testing.T) {
	r := New()
	tag := types.TagPatientName

	if r.HasCallback(tag) {
		t.Error("HasCallback should be false before any registration")
	}

	r.Register(tag, func(types.Tag, string, []byte) {})
	if !r.HasCallback(tag) {
		t.Error("HasCallback should be true after Register")
	}

	r2 := New()
	r2.RegisterDefault(func(types.Tag, string, []byte) {})
	if !r2.HasCallback(types.Tag{Group: 0x1111, Element: 0x2222}) {
		t.Error("HasCallback should be true for any tag once a default is set")
	}
}

func TestRegisteredTags(t *testing.T) {
	r := New()
	r.Register(types.TagSeriesUID, func(types.Tag, string, []byte) {})
	r.Register(types.TagInstanceUID, func(types.Tag, string, []byte) {})

	tags := r.RegisteredTags()
	if len(tags) != 2 {
		t.Fatalf("len(RegisteredTags()) = %d, want 2", len(tags))
	}
}
