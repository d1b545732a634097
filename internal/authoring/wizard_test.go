package authoring

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardTransitions(t *testing.T) {
	w := NewWizard()
	assert.Equal(t, StepNaming, w.Step())

	// blank name blocks Next
	assert.True(t, errors.Is(w.Next(), ErrNameRequired))
	w.SetName("   ")
	assert.True(t, errors.Is(w.Next(), ErrNameRequired))
	assert.Equal(t, StepNaming, w.Step())

	// editing is refused on the naming step
	err := w.Edit(func(d *Draft) error { return nil })
	assert.True(t, errors.Is(err, ErrNotEditing))

	w.SetName("Exit interview")
	require.NoError(t, w.Next())
	assert.Equal(t, StepEditing, w.Step())

	var qid string
	require.NoError(t, w.Edit(func(d *Draft) error {
		q, err := d.AddQuestion(QuestionRating)
		qid = q.ID
		return err
	}))

	// back preserves name and questions
	assert.False(t, w.Back())
	assert.Equal(t, StepNaming, w.Step())
	naming, ok := w.State().(Naming)
	require.True(t, ok)
	assert.Equal(t, "Exit interview", naming.Name)

	require.NoError(t, w.Next())
	d := w.Draft()
	assert.Equal(t, "Exit interview", d.Name())
	require.Equal(t, 1, d.Len())
	assert.Equal(t, qid, d.Questions()[0].ID)

	// Next in editing is a no-op
	require.NoError(t, w.Next())
	assert.Equal(t, StepEditing, w.Step())

	// back twice exits
	assert.False(t, w.Back())
	assert.True(t, w.Back())
}

func TestWizardSetNameWhileEditing(t *testing.T) {
	w := NewWizard()
	w.SetName("First")
	require.NoError(t, w.Next())

	w.SetName("Second")
	assert.Equal(t, "Second", w.Draft().Name())
}

func TestWizardDraftIsCopy(t *testing.T) {
	w := NewWizard()
	w.SetName("Copy")
	require.NoError(t, w.Next())

	d := w.Draft()
	_, _ = d.AddQuestion(QuestionRating)
	assert.Equal(t, 0, w.Draft().Len())
}

func TestWizardFromDraft(t *testing.T) {
	d := NewDraft("Starter")
	_, _ = d.AddQuestion(QuestionCategory)

	w := NewWizardFrom(d)
	assert.Equal(t, StepNaming, w.Step())
	require.NoError(t, w.Next())
	assert.Equal(t, 1, w.Draft().Len())
}

func TestWizardSnapshot(t *testing.T) {
	w := NewWizard()
	w.SetName("Snapshot")
	require.NoError(t, w.Next())
	require.NoError(t, w.Edit(func(d *Draft) error {
		_, err := d.AddQuestion(QuestionCategory)
		return err
	}))

	raw, err := json.Marshal(w)
	require.NoError(t, err)

	restored := NewWizard()
	require.NoError(t, json.Unmarshal(raw, restored))
	assert.Equal(t, StepEditing, restored.Step())
	assert.Equal(t, w.Draft().Questions(), restored.Draft().Questions())

	// naming snapshot keeps retained questions
	w.Back()
	raw, err = json.Marshal(w)
	require.NoError(t, err)
	restored = NewWizard()
	require.NoError(t, json.Unmarshal(raw, restored))
	assert.Equal(t, StepNaming, restored.Step())
	assert.Equal(t, 1, restored.Draft().Len())
}

func TestWizardSnapshotRejects(t *testing.T) {
	w := NewWizard()
	assert.Error(t, json.Unmarshal([]byte(`{"step":"review","draft":{"name":"x"}}`), w))
	assert.Error(t, json.Unmarshal([]byte(`{"step":"editing","draft":{"name":""}}`), w))
}
