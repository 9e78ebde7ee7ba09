package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	DiagramType     string `validate:"required,diagramtype"`
	PermissionLevel string `validate:"omitempty,permissionlevel"`
	EdgeType        string `validate:"omitempty,edgetype"`
	SourceID        string `validate:"required"`
	TargetID        string `validate:"required,nefield=SourceID"`
}

func TestValidateStruct(t *testing.T) {
	assert.NoError(t, ValidateStruct(sample{DiagramType: "workflow", SourceID: "a", TargetID: "b"}))

	err := ValidateStruct(sample{DiagramType: "mindmap", PermissionLevel: "secret", EdgeType: "x", SourceID: "a", TargetID: "a"})

	assert.EqualError(t, err, "diagram_type must be one of: org_chart business_process workflow; "+
		"permission_level must be one of: public manager admin; "+
		"edge_type must be one of: hierarchy flow sequence collaboration; "+
		"target_id must differ from source_id")
}
