package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
)

type syncParticipantsRequest struct {
	Participants []participantdomain.Input `json:"participants"`
}

func (s *Server) CreateOpportunity(c *gin.Context) {
	var req participantdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("request body is not a valid opportunity"))
		return
	}

	resp, err := s.roster.CreateWithParticipants(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if resp.Created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": resp})
}

func (s *Server) GetOpportunity(c *gin.Context) {
	id, ok := opportunityIDParam(c)
	if !ok {
		return
	}

	resp, err := s.roster.GetOpportunityWithParticipants(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SyncParticipants(c *gin.Context) {
	id, ok := opportunityIDParam(c)
	if !ok {
		return
	}

	var req syncParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("request body is not a valid participant list"))
		return
	}

	resp, err := s.roster.SyncParticipants(c.Request.Context(), participantdomain.SyncRequest{
		OpportunityID: id,
		Participants:  req.Participants,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func opportunityIDParam(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil || id <= 0 {
		AbortWithError(c, invalidRequestError("opportunity id is not valid"))
		return 0, false
	}
	return id, true
}
