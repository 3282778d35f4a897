package httpapi

import "github.com/gin-gonic/gin"

// Register mounts the workflow routes on a (usually authenticated) group.
func (h Handlers) Register(g *gin.RouterGroup) {
	g.POST("/intents", h.SelectIntent)
	g.DELETE("/intents", h.DismissIntent)
	g.PATCH("/intents/draft", h.UpdateDraft)

	g.POST("/meetings", h.CreateMeeting)
	g.GET("/meetings/upcoming", h.ListUpcoming)
	g.GET("/meetings/previous", h.ListPrevious)
	g.GET("/meetings/:id/link", h.MeetingLink)
	g.GET("/meetings/:id/recordings", h.ListRecordings)
	g.POST("/meetings/:id/join", h.JoinMeeting)

	g.GET("/sessions/:id", h.SessionView)
	g.POST("/sessions/:id/layout", h.SetLayout)
	g.POST("/sessions/:id/participants/toggle", h.ToggleParticipants)
	g.GET("/sessions/:id/stats", h.SessionStats)
	g.POST("/sessions/:id/leave", h.LeaveSession)
	g.POST("/sessions/:id/end", h.EndSession)
	g.GET("/sessions/:id/ws", h.SessionFeed)
}
