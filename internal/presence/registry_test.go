package presence

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryRegisterAndSnapshot(t *testing.T) {
	r := NewRegistry()
	phone := NewSession(nil, "u1", "S1", "student", "C1")
	laptop := NewSession(nil, "u1", "S1", "student", "C1")
	other := NewSession(nil, "u2", "S1", "teacher", "C1")

	r.Register(phone)
	r.Register(laptop)
	r.Register(other)

	assert.Len(t, r.SnapshotFor("u1"), 2)
	assert.Len(t, r.SnapshotFor("u2"), 1)
	assert.Nil(t, r.SnapshotFor("u3"))
	assert.Equal(t, 2, r.OnlineCount())
}

func TestRegistryUnregisterRemovesOnlyThatSession(t *testing.T) {
	r := NewRegistry()
	phone := NewSession(nil, "u1", "S1", "student", "C1")
	laptop := NewSession(nil, "u1", "S1", "student", "C1")
	r.Register(phone)
	r.Register(laptop)

	r.Unregister(phone)

	snapshot := r.SnapshotFor("u1")
	assert.Len(t, snapshot, 1)
	assert.Same(t, laptop, snapshot[0])

	r.Unregister(laptop)
	assert.Nil(t, r.SnapshotFor("u1"))
	assert.Zero(t, r.OnlineCount())
}

func TestRegistryUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry()
	ghost := NewSession(nil, "u1", "S1", "student", "C1")

	r.Unregister(ghost)

	assert.Zero(t, r.OnlineCount())
}

func TestRegistrySnapshotIsACopy(t *testing.T) {
	r := NewRegistry()
	phone := NewSession(nil, "u1", "S1", "student", "C1")
	r.Register(phone)

	snapshot := r.SnapshotFor("u1")
	snapshot[0] = nil

	assert.Same(t, phone, r.SnapshotFor("u1")[0])
}

func TestRegistryConcurrentChurn(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSession(nil, "u1", "S1", "student", "C1")
			r.Register(s)
			r.SnapshotFor("u1")
			r.Unregister(s)
		}()
	}
	wg.Wait()

	assert.Zero(t, r.OnlineCount())
}
