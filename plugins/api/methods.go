package api

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/procfs"
)

func handleRoot(c echo.Context) error {
	cc := c.(*extendedContext)
	return c.JSONPretty(http.StatusOK, &rootResponse{
		ApiRoutes: cc.apiRoutes,
	}, JSON_PRETTY_INDENT)
}

func handleQueues(c echo.Context) error {
	cc := c.(*extendedContext)

	groups := make([]uint16, 0, len(cc.sources))
	for g := range cc.sources {
		groups = append(groups, g)
	}
	slices.Sort(groups)

	resp := make([]queueResponse, 0, len(groups))
	for _, g := range groups {
		resp = append(resp, describe(cc.sources[g]))
	}

	return c.JSONPretty(http.StatusOK, resp, JSON_PRETTY_INDENT)
}

func handleQueue(c echo.Context) error {
	cc := c.(*extendedContext)

	s, err := lookup(cc)
	if err != nil {
		return err
	}

	return c.JSONPretty(http.StatusOK, describe(s), JSON_PRETTY_INDENT)
}

func handleQueueStats(c echo.Context) error {
	cc := c.(*extendedContext)

	s, err := lookup(cc)
	if err != nil {
		return err
	}

	return c.JSONPretty(http.StatusOK, s.Stats().Snapshot(), JSON_PRETTY_INDENT)
}

func lookup(cc *extendedContext) (Source, error) {
	g, err := strconv.ParseUint(cc.Param("group"), 10, 16)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "wrong group "+cc.Param("group"))
	}

	s, ok := cc.sources[uint16(g)]
	if !ok {
		return nil, echo.NewHTTPError(http.StatusNotFound, "unknown group "+cc.Param("group"))
	}

	return s, nil
}

func describe(s Source) queueResponse {
	return queueResponse{
		Group:  s.Group(),
		Config: s.Config(),
		Stats:  s.Stats().Snapshot(),
	}
}

func handleProcess(c echo.Context) error {
	proc, err := procfs.Self()
	if err != nil {
		return fmt.Errorf("error opening the process' procfs entry: %w", err)
	}

	stat, err := proc.Stat()
	if err != nil {
		return fmt.Errorf("error reading the process' stat: %w", err)
	}

	fds, err := proc.FileDescriptorsLen()
	if err != nil {
		return fmt.Errorf("error counting open descriptors: %w", err)
	}

	return c.JSONPretty(http.StatusOK, &processResponse{
		Pid:         proc.PID,
		OpenFds:     fds,
		ResidentMem: stat.ResidentMemory(),
		Threads:     stat.NumThreads,
		State:       stat.State,
	}, JSON_PRETTY_INDENT)
}
