package domain

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// ParseInputID reads an id submitted as a JSON number or string. Null and empty values
// yield zero. Any other value that is not a positive id yields zero plus the offending
// text, so it can be reported against its row instead of failing the whole request.
func ParseInputID(raw json.RawMessage) (snowflake.ID, string) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, ""
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err != nil {
			return 0, text
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return 0, ""
		}
	}
	id, err := snowflake.ParseString(text)
	if err != nil || id <= 0 {
		return 0, text
	}
	return id, ""
}

func (in *Input) UnmarshalJSON(data []byte) error {
	type plain Input
	aux := struct {
		*plain
		OrganizationID json.RawMessage `json:"organizationId"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	in.OrganizationID, in.InvalidOrganizationID = ParseInputID(aux.OrganizationID)
	return nil
}

func (r *SyncRequest) UnmarshalJSON(data []byte) error {
	type plain SyncRequest
	aux := struct {
		*plain
		OpportunityID json.RawMessage `json:"opportunityId"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	var bad string
	r.OpportunityID, bad = ParseInputID(aux.OpportunityID)
	if bad != "" {
		r.Problem = fmt.Sprintf("opportunityId %q is not a valid id", bad)
	}
	return nil
}
