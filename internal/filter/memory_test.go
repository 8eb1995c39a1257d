package filter_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"

	"tubelinks/internal/domain"
	"tubelinks/internal/filter"
	"tubelinks/internal/filter/filtertest"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestMemoryStore(t *testing.T) {
	filtertest.RunStoreContract(t, func(t *testing.T, defaults domain.WordSet) filter.Store {
		return filter.NewMemoryStore(defaults, quietLogger())
	})
}
