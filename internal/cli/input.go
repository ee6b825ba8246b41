package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bwmarrin/snowflake"
	participantdomain "github.com/smallbiznis/dealroster/internal/participant/domain"
	"github.com/smallbiznis/dealroster/internal/seed"
	"gopkg.in/yaml.v3"
)

// rosterFile is the on-disk shape read by validate and bulk-sync. JSON files parse too,
// since YAML is a superset.
type rosterFile struct {
	Participants []participantEntry `yaml:"participants"`
	Items        []syncEntry        `yaml:"items"`
}

type syncEntry struct {
	OpportunityID fileID             `yaml:"opportunityId"`
	Participants  []participantEntry `yaml:"participants"`
}

type participantEntry struct {
	OrganizationID fileID      `yaml:"organizationId"`
	Role           string      `yaml:"role"`
	IsPrimary      bool        `yaml:"isPrimary"`
	CommissionRate fileRawJSON `yaml:"commissionRate"`
	Territory      *string     `yaml:"territory"`
	Notes          *string     `yaml:"notes"`
}

// fileID accepts ids written as numbers or as quoted strings, the form the HTTP API returns.
type fileID snowflake.ID

func (id *fileID) UnmarshalYAML(node *yaml.Node) error {
	value := strings.TrimSpace(node.Value)
	if value == "" || node.ShortTag() == "!!null" {
		*id = 0
		return nil
	}
	parsed, err := snowflake.ParseString(value)
	if err != nil {
		return fmt.Errorf("line %d: %q is not a valid id", node.Line, node.Value)
	}
	*id = fileID(parsed)
	return nil
}

// fileRawJSON keeps a scalar as the JSON the validator expects: numbers stay numbers and
// strings stay strings, so "0.1" and 0.1 are both accepted and "abc" is reported.
type fileRawJSON json.RawMessage

func (r *fileRawJSON) UnmarshalYAML(node *yaml.Node) error {
	switch node.ShortTag() {
	case "!!null":
		*r = nil
		return nil
	case "!!int", "!!float":
		*r = fileRawJSON(node.Value)
		return nil
	case "!!str":
		raw, err := json.Marshal(node.Value)
		if err != nil {
			return err
		}
		*r = raw
		return nil
	}

	var value interface{}
	if err := node.Decode(&value); err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("line %d: commissionRate cannot be encoded: %w", node.Line, err)
	}
	*r = raw
	return nil
}

func (p participantEntry) input() participantdomain.Input {
	return participantdomain.Input{
		OrganizationID: snowflake.ID(p.OrganizationID),
		Role:           p.Role,
		IsPrimary:      p.IsPrimary,
		CommissionRate: json.RawMessage(p.CommissionRate),
		Territory:      p.Territory,
		Notes:          p.Notes,
	}
}

func inputs(entries []participantEntry) []participantdomain.Input {
	out := make([]participantdomain.Input, 0, len(entries))
	for _, entry := range entries {
		out = append(out, entry.input())
	}
	return out
}

func (f rosterFile) syncRequests() []participantdomain.SyncRequest {
	out := make([]participantdomain.SyncRequest, 0, len(f.Items))
	for _, item := range f.Items {
		out = append(out, participantdomain.SyncRequest{
			OpportunityID: snowflake.ID(item.OpportunityID),
			Participants:  inputs(item.Participants),
		})
	}
	return out
}

func readRosterFile(path string) (rosterFile, error) {
	var file rosterFile
	err := decodeFile(path, &file)
	return file, err
}

func readFixture(path string) (seed.Fixture, error) {
	var fixture seed.Fixture
	err := decodeFile(path, &fixture)
	return fixture, err
}

func decodeFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
