package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
)

type validateParticipantsRequest struct {
	Participants []participantdomain.Input `json:"participants"`
}

// bulkSyncRequest keeps items raw so one unreadable item fails alone.
type bulkSyncRequest struct {
	Items []json.RawMessage `json:"items"`
}

// ValidateParticipants answers 200 for both valid and invalid batches; the verdict is in the body.
func (s *Server) ValidateParticipants(c *gin.Context) {
	var req validateParticipantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("request body is not a valid participant list"))
		return
	}

	resp, err := s.roster.ValidateParticipants(c.Request.Context(), req.Participants)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) BulkSyncParticipants(c *gin.Context) {
	var req bulkSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError("request body is not a valid bulk sync batch"))
		return
	}

	items := make([]participantdomain.SyncRequest, 0, len(req.Items))
	for i, raw := range req.Items {
		items = append(items, decodeBulkItem(i, raw))
	}

	resp, err := s.roster.BulkSync(c.Request.Context(), items)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// decodeBulkItem reads one bulk item. An item that does not decode keeps whatever
// opportunityId it carries and is marked with a Problem for the service to reject.
func decodeBulkItem(index int, raw json.RawMessage) participantdomain.SyncRequest {
	var item participantdomain.SyncRequest
	if err := json.Unmarshal(raw, &item); err == nil {
		return item
	}

	var head struct {
		OpportunityID json.RawMessage `json:"opportunityId"`
	}
	_ = json.Unmarshal(raw, &head)
	id, _ := participantdomain.ParseInputID(head.OpportunityID)
	return participantdomain.SyncRequest{
		OpportunityID: id,
		Problem:       fmt.Sprintf("item %d is not a valid sync request", index),
	}
}
