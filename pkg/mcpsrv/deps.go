package mcpsrv

import (
	"github.com/usestring/apirecord/internal/config"
	"github.com/usestring/apirecord/pkg/recorder"
)

// Deps contains the dependencies available to custom tools.
type Deps struct {
	Recorder *recorder.Recorder
	Config   *config.Config
}
