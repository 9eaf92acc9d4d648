package server

import (
	"net/url"

	"github.com/gin-gonic/gin"
)

// handleEvents streams cache invalidations for the signed-in user.
func (s *Server) handleEvents(c *gin.Context) {
	s.hub.Serve(c.Writer, c.Request, currentUserID(c), originHosts(s.options.CORSOrigins))
}

// originHosts turns CORS origins into websocket origin patterns, which match on host.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, origin := range origins {
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			hosts = append(hosts, origin)
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
