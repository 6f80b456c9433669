package api

import (
	"github.com/labstack/echo/v4"
	"github.com/scitags/go-nflog/nflog"
)

const (
	JSON_PRETTY_INDENT string = "    "
)

// Source is anything describing a bound NFLOG group, such as an
// *nflog.Queue.
type Source interface {
	Group() uint16
	Config() nflog.Config
	Stats() *nflog.Stats
}

type rootResponse struct {
	ApiRoutes []*echo.Route `json:"apiRoutes"`
}

type queueResponse struct {
	Group  uint16              `json:"group"`
	Config nflog.Config        `json:"config"`
	Stats  nflog.StatsSnapshot `json:"stats"`
}

// processResponse describes the daemon itself as seen through /proc.
type processResponse struct {
	Pid         int    `json:"pid"`
	OpenFds     int    `json:"openFds"`
	ResidentMem int    `json:"residentMemory"`
	Threads     int    `json:"threads"`
	State       string `json:"state"`
}

type extendedContext struct {
	echo.Context
	apiRoutes []*echo.Route
	sources   map[uint16]Source
}
