package nav

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecorderKeepsLastTarget(t *testing.T) {
	var r Recorder

	_, ok := r.Target()
	assert.False(t, ok)

	r.Navigate(LandingPath)
	r.Navigate(EntryPath)

	target, ok := r.Target()
	assert.True(t, ok)
	assert.Equal(t, EntryPath, target)
}

func TestFunc(t *testing.T) {
	var got []string
	var n Navigator = Func(func(p string) { got = append(got, p) })

	n.Navigate(LandingPath)
	assert.Equal(t, []string{LandingPath}, got)
}
