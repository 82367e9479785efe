package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "finance:overview:2024-03-15", Key("finance", "overview", "2024-03-15"))
	assert.Equal(t, "dash", Key("dash"))
}
