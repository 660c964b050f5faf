package relationship

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIDSet(t *testing.T) {
	s := NewIDSet("a", "", "b", "a")
	require.Equal(t, []string{"a", "b"}, s.Slice())
	require.True(t, s.Has("b"))
	require.False(t, s.Has(""))

	grown := s.With("c", "a")
	require.Equal(t, []string{"a", "b", "c"}, grown.Slice())
	require.Equal(t, 2, s.Len(), "sets are not modified in place")

	require.Equal(t, []string{"a", "c"}, grown.Without("b").Slice())
	require.True(t, NewIDSet("x", "y").Equal(NewIDSet("y", "x")))
	require.False(t, NewIDSet("x").Equal(NewIDSet("x", "y")))
	require.True(t, IDSet{}.Equal(NewIDSet()))
}

func TestValueValidate(t *testing.T) {
	require.NoError(t, Value{CurrentIDs: NewIDSet("a")}.Validate("Sections", "Post"))

	err := Value{ItemBeingCreated: true}.Validate("Sections", "Post")
	var uerr *UnfinishedError
	require.ErrorAs(t, err, &uerr)
	require.Equal(t, "You must finish creating and editing any related sections before saving the post", err.Error())

	require.Error(t, Value{ItemsBeingEdited: NewIDSet("a")}.Validate("Authors", "Post"))
}
