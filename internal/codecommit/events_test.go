package codecommit

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commitcard/internal/types"
)

// message builds a notification with the given detail and attributes.
func message(t *testing.T, detailType string, detail, attrs any) *Message {
	t.Helper()
	msg := &Message{DetailType: detailType, Region: "eu-west-1"}
	if detail != nil {
		raw, err := json.Marshal(detail)
		require.NoError(t, err)
		msg.Detail = raw
	}
	if attrs != nil {
		raw, err := json.Marshal(attrs)
		require.NoError(t, err)
		msg.AdditionalAttributes = raw
	}
	return msg
}

func pullRequestDetailMap(event string) map[string]any {
	return map[string]any{
		"event":           event,
		"repositoryNames": []string{"repo1"},
		"pullRequestId":   "42",
		"title":           "Add feature",
		"author":          "arn:aws:iam::123:user/alice",
	}
}

func requireMissing(t *testing.T, err error, fields ...string) {
	t.Helper()
	require.Error(t, err)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationMissingField, appErr.Code)

	var mfe *MissingFieldError
	require.True(t, errors.As(err, &mfe))
	assert.ElementsMatch(t, fields, mfe.Fields)
}

func TestClassify_CommentOnPullRequest(t *testing.T) {
	msg := message(t, DetailTypeCommentOnPullRequest,
		map[string]any{"pullRequestId": "7", "repositoryName": "HTG-UI"},
		map[string]any{
			"comments": []map[string]any{
				{"authorArn": "arn:aws:iam::123:user/bob", "commentText": "first"},
				{"authorArn": "arn:aws:iam::123:user/carol", "commentText": "second"},
			},
			"filePath":            "src/main.go",
			"commentedLineNumber": 12,
		})

	ev, err := Classify(msg)
	require.NoError(t, err)

	c, ok := ev.(*CommentOnPullRequest)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, CategoryCommentOnPullRequest, c.Category())
	assert.Equal(t, "7", c.PullRequestID)
	assert.Equal(t, "HTG-UI", c.RepositoryName)
	assert.Equal(t, "eu-west-1", c.Region)
	assert.Equal(t, "carol", c.Latest().Author())
	assert.Equal(t, "second", c.Latest().CommentText)
	require.Len(t, c.Prior(), 1)
	assert.Equal(t, "first", c.Prior()[0].CommentText)

	path, line, ok := c.Location()
	assert.True(t, ok)
	assert.Equal(t, "src/main.go", path)
	assert.Equal(t, "12", line)
}

func TestClassify_CommentLocationRequiresBoth(t *testing.T) {
	msg := message(t, DetailTypeCommentOnPullRequest,
		map[string]any{"pullRequestId": "7"},
		map[string]any{
			"comments": []map[string]any{{"authorArn": "bob", "commentText": "hi"}},
			"filePath": "src/main.go",
		})

	ev, err := Classify(msg)
	require.NoError(t, err)

	_, _, ok := ev.(*CommentOnPullRequest).Location()
	assert.False(t, ok)
}

func TestClassify_CommentMissingFields(t *testing.T) {
	msg := message(t, DetailTypeCommentOnPullRequest,
		map[string]any{"repositoryName": "repo1"},
		map[string]any{"comments": []map[string]any{}})

	_, err := Classify(msg)
	requireMissing(t, err, "detail.pullRequestId", "additionalAttributes.comments")
}

func TestClassify_CommentEntryMissingText(t *testing.T) {
	msg := message(t, DetailTypeCommentOnPullRequest,
		map[string]any{"pullRequestId": "7"},
		map[string]any{"comments": []map[string]any{{"authorArn": "bob"}}})

	_, err := Classify(msg)
	requireMissing(t, err, "additionalAttributes.comments[0].commentText")
}

func TestClassify_CommentIncompletePriorCommentsAccepted(t *testing.T) {
	msg := message(t, DetailTypeCommentOnPullRequest,
		map[string]any{"pullRequestId": "7"},
		map[string]any{"comments": []map[string]any{
			{"commentText": "old, author deleted"},
			{"authorArn": "arn:aws:iam::1:user/carol"},
			{"authorArn": "arn:aws:iam::1:user/bob", "commentText": "new"},
		}})

	ev, err := Classify(msg)
	require.NoError(t, err)

	c := ev.(*CommentOnPullRequest)
	assert.Equal(t, "bob", c.Latest().Author())
	require.Len(t, c.Prior(), 2)
	assert.Empty(t, c.Prior()[0].Author())
	assert.Empty(t, c.Prior()[1].CommentText)
}

func TestClassify_CommentLatestMustBeComplete(t *testing.T) {
	msg := message(t, DetailTypeCommentOnPullRequest,
		map[string]any{"pullRequestId": "7"},
		map[string]any{"comments": []map[string]any{
			{"authorArn": "arn:aws:iam::1:user/bob", "commentText": "old"},
			{"commentText": "new"},
		}})

	_, err := Classify(msg)
	requireMissing(t, err, "additionalAttributes.comments[1].authorArn")
}

func TestClassify_RepositoryStateChange(t *testing.T) {
	msg := message(t, DetailTypeRepositoryStateChange, map[string]any{
		"repositoryName": "repo1",
		"referenceName":  "main",
		"commitId":       "abc123",
		"callerUserArn":  "arn:aws:sts::123:assumed-role/Dev/dave",
	}, nil)

	ev, err := Classify(msg)
	require.NoError(t, err)

	r, ok := ev.(*RepositoryStateChange)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, CategoryRepositoryStateChange, r.Category())
	assert.Equal(t, "dave", r.Author())
	assert.Equal(t, "abc123", r.CommitID)
}

func TestClassify_RepositoryStateChangeMissingDetail(t *testing.T) {
	_, err := Classify(message(t, DetailTypeRepositoryStateChange, nil, nil))
	requireMissing(t, err,
		"detail.repositoryName", "detail.referenceName", "detail.commitId", "detail.callerUserArn")
}

func TestClassify_PullRequestVariants(t *testing.T) {
	merged := pullRequestDetailMap(PullRequestEventMergeStatusUpdated)
	merged["pullRequestStatus"] = "Closed"
	approval := pullRequestDetailMap(PullRequestEventApprovalStateChange)
	approval["approvalStatus"] = "APPROVE"

	tests := []struct {
		name   string
		detail map[string]any
		want   Category
	}{
		{"merge status", merged, CategoryPullRequestMergeStatusUpdated},
		{"created", pullRequestDetailMap(PullRequestEventCreated), CategoryPullRequestCreated},
		{"approval", approval, CategoryPullRequestApprovalStateChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Classify(message(t, DetailTypePullRequestStateChange, tt.detail, nil))
			require.NoError(t, err)
			require.NotNil(t, ev)
			assert.Equal(t, tt.want, ev.Category())
		})
	}
}

func TestClassify_PullRequestFields(t *testing.T) {
	detail := pullRequestDetailMap(PullRequestEventMergeStatusUpdated)
	detail["pullRequestStatus"] = "Closed"
	detail["repositoryNames"] = []string{"repo1", "repo2"}
	detail["pullRequestId"] = 42

	ev, err := Classify(message(t, DetailTypePullRequestStateChange, detail, nil))
	require.NoError(t, err)

	m := ev.(*PullRequestMergeStatusUpdated)
	assert.Equal(t, "repo1", m.RepositoryName)
	assert.Equal(t, "42", m.PullRequestID)
	assert.Equal(t, "Add feature", m.Title)
	assert.Equal(t, "alice", m.Author())
	assert.Equal(t, "Closed", m.Status)
}

func TestClassify_PullRequestStatusRequiredPerEvent(t *testing.T) {
	_, err := Classify(message(t, DetailTypePullRequestStateChange,
		pullRequestDetailMap(PullRequestEventMergeStatusUpdated), nil))
	requireMissing(t, err, "detail.pullRequestStatus")

	_, err = Classify(message(t, DetailTypePullRequestStateChange,
		pullRequestDetailMap(PullRequestEventApprovalStateChange), nil))
	requireMissing(t, err, "detail.approvalStatus")
}

func TestClassify_PullRequestEmptyRepositoryNames(t *testing.T) {
	detail := pullRequestDetailMap(PullRequestEventCreated)
	detail["repositoryNames"] = []string{}

	_, err := Classify(message(t, DetailTypePullRequestStateChange, detail, nil))
	requireMissing(t, err, "detail.repositoryNames")
}

func TestClassify_UnhandledPullRequestEventIsSkipped(t *testing.T) {
	// Skipped before validation, so an otherwise incomplete detail is fine.
	ev, err := Classify(message(t, DetailTypePullRequestStateChange,
		map[string]any{"event": "pullRequestSourceBranchUpdated"}, nil))
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestClassify_UnhandledPullRequestEventIgnoresMalformedFields(t *testing.T) {
	ev, err := Classify(message(t, DetailTypePullRequestStateChange,
		map[string]any{"event": "pullRequestSourceBranchUpdated", "repositoryNames": "repo1", "pullRequestId": true}, nil))
	assert.NoError(t, err)
	assert.Nil(t, ev)
}

func TestClassify_HandledPullRequestEventMalformedField(t *testing.T) {
	_, err := Classify(message(t, DetailTypePullRequestStateChange,
		map[string]any{"event": PullRequestEventCreated, "repositoryNames": "repo1"}, nil))

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationMalformedEnvelope, appErr.Code)
}

func TestClassify_UnknownDetailTypeIsSkipped(t *testing.T) {
	for _, dt := range []string{"CodeCommit Comment on Commit", "CodeBuild Build State Change", "codecommit pull request state change"} {
		ev, err := Classify(message(t, dt, map[string]any{"anything": true}, nil))
		assert.NoError(t, err, dt)
		assert.Nil(t, ev, dt)
	}
}

func TestClassify_MalformedDetail(t *testing.T) {
	msg := &Message{DetailType: DetailTypeRepositoryStateChange, Detail: json.RawMessage(`"just a string"`)}

	_, err := Classify(msg)

	var appErr *types.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, types.ErrCodeValidationMalformedEnvelope, appErr.Code)
}

func TestClassify_NilMessage(t *testing.T) {
	_, err := Classify(nil)
	assert.Error(t, err)
}

func TestMissingFieldErrorMessage(t *testing.T) {
	err := &MissingFieldError{DetailType: DetailTypePullRequestStateChange, Fields: []string{"detail.title", "detail.author"}}
	assert.Equal(t, "CodeCommit Pull Request State Change: missing required fields: detail.title, detail.author", err.Error())
}
