package names

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternStable(t *testing.T) {
	a := Intern("/Game/Interned")
	b := Intern("/Game/Interned")
	assert.Equal(t, a, b)
	assert.Equal(t, "/Game/Interned", a.String())
	assert.False(t, a.IsNone())
}

func TestInternEmptyIsNone(t *testing.T) {
	assert.Equal(t, None, Intern(""))
	assert.True(t, None.IsNone())
	assert.Equal(t, "", None.String())
}

func TestInternCaseSensitive(t *testing.T) {
	assert.NotEqual(t, Intern("/Game/Case"), Intern("/game/case"))
}

func TestFind(t *testing.T) {
	_, ok := Find("never-interned-value-xyz")
	assert.False(t, ok)

	n := Intern("found-value")
	got, ok := Find("found-value")
	assert.True(t, ok)
	assert.Equal(t, n, got)
}

func TestCompare(t *testing.T) {
	b := Intern("zeta")
	a := Intern("alpha")
	assert.True(t, Less(a, b))
	assert.Equal(t, 0, Compare(a, a))
	assert.Equal(t, 1, Compare(b, a))
}

func TestConcurrentIntern(t *testing.T) {
	var wg sync.WaitGroup
	results := make([]Name, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Intern("/Game/Concurrent")
		}(i)
	}
	wg.Wait()
	for _, n := range results {
		assert.Equal(t, results[0], n)
	}
}

func TestSet(t *testing.T) {
	s := NewSet("/Game/A", "/Game/B")
	assert.True(t, s.Contains(Intern("/Game/A")))
	assert.False(t, s.Contains(Intern("/Game/C")))

	var empty Set
	assert.False(t, empty.Contains(Intern("/Game/A")))
}

func TestInternAll(t *testing.T) {
	assert.Nil(t, InternAll())
	got := InternAll("/Game/A", "", "/Game/A")
	assert.Equal(t, []Name{Intern("/Game/A"), None, Intern("/Game/A")}, got)
}
