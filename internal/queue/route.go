package queue

import (
	"fmt"
	"strings"
)

// Route is the logical remote action a queued call represents.
type Route string

const (
	Fav        Route = "FAV"
	Unfav      Route = "UNFAV"
	Boost      Route = "BOOST"
	Unboost    Route = "UNBOOST"
	Post       Route = "POST"
	Unpost     Route = "UNPOST"
	Bookmark   Route = "BOOKMARK"
	Unbookmark Route = "UNBOOKMARK"
	Context    Route = "CONTEXT"
)

var inverses = map[Route]Route{
	Fav:        Unfav,
	Unfav:      Fav,
	Boost:      Unboost,
	Unboost:    Boost,
	Post:       Unpost,
	Unpost:     Post,
	Bookmark:   Unbookmark,
	Unbookmark: Bookmark,
}

// ParseRoute parses a route token, case insensitively.
func ParseRoute(s string) (Route, error) {
	r := Route(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := inverses[r]; ok || r == Context {
		return r, nil
	}
	return "", fmt.Errorf("queue: unknown route %q", s)
}

// Inverse returns the route that undoes r, and whether one exists.
// Context has no inverse.
func (r Route) Inverse() (Route, bool) {
	inv, ok := inverses[r]
	return inv, ok
}
