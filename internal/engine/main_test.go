package engine

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestMain(m *testing.M) {
	// Keep debug logging out of test output
	log.Logger = zerolog.Nop()
	m.Run()
}
