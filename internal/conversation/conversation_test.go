package conversation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendDoesNotMutateCaller(t *testing.T) {
	backing := make(History, 1, 4)
	backing[0] = UserTurn("first")

	extended := backing.Append(AssistantTurn("second"))
	other := backing.Append(UserTurn("branch"))

	require.Len(t, extended, 2)
	require.Len(t, other, 2)
	assert.Equal(t, AssistantTurn("second"), extended[1])
	assert.Equal(t, UserTurn("branch"), other[1])
	assert.Len(t, backing, 1)
}

func TestAppendToNil(t *testing.T) {
	var h History
	h = h.Append(UserTurn("hi"))
	assert.Equal(t, History{{Role: RoleUser, Content: "hi"}}, h)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, History{UserTurn("a"), AssistantTurn("b")}.Validate())
	assert.NoError(t, History(nil).Validate())

	err := History{UserTurn("a"), {Role: "system", Content: "x"}}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conversationHistory[1]")
	assert.Contains(t, err.Error(), `"system"`)
}

func TestMarshalJSON(t *testing.T) {
	data, err := json.Marshal(History(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))

	data, err = json.Marshal(History{UserTurn("hi"), AssistantTurn("hello")})
	require.NoError(t, err)
	assert.JSONEq(t, `[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`, string(data))
}

func TestMarshalJSONKeepsMarkup(t *testing.T) {
	data, err := History{AssistantTurn("<b>hello</b> & bye")}.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `[{"role":"assistant","content":"<b>hello</b> & bye"}]`, string(data))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.json")
	require.NoError(t, os.WriteFile(good, []byte(`[{"role":"user","content":"hi"}]`), 0o600))
	h, err := LoadFile(good)
	require.NoError(t, err)
	assert.Equal(t, History{UserTurn("hi")}, h)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[{"role":"tool","content":"hi"}]`), 0o600))
	_, err = LoadFile(bad)
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
