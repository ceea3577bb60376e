package tests

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasahq/darasa/core/feedback"
	emailsvc "github.com/darasahq/darasa/services/email"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_feedbackApi_create(t *testing.T) {
	instructor := seedUser(t, "Mr. Kabasele", "kabasele@test.cd")
	student := seedUser(t, "Chantal", "chantal@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Rated Tutor", true)

	tests := []httpTest{
		{
			name:     "no identity",
			method:   http.MethodPost,
			path:     "/v1/feedback",
			body:     marchallObj(t, feedback.NewFeedback{Rating: 5}),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNoIdentity),
		},
		{
			name:     "rating out of range",
			method:   http.MethodPost,
			path:     "/v1/feedback",
			body:     marchallObj(t, feedback.NewFeedback{Rating: 6}),
			userID:   student,
			role:     "student",
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "platform feedback, no assistant",
			method:   http.MethodPost,
			path:     "/v1/feedback",
			body:     marchallObj(t, feedback.NewFeedback{Rating: 4, Comment: "Great app"}),
			userID:   student,
			role:     "student",
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newIdentifiedRequest(tt.method, tt.path, tt.userID, tt.role, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("assistant feedback notifies instructor", func(t *testing.T) {
		sentBefore := len(emailsvc.SentMessages)

		body := marchallObj(t, feedback.NewFeedback{
			AssistantID: asst.ID,
			Rating:      2,
			Comment:     "Keeps repeating itself",
		})
		req, rec := newIdentifiedRequest(http.MethodPost, "/v1/feedback", student, "student", body)
		app.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		var fb feedback.Feedback
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fb))
		assert.Equal(t, student, fb.StudentID)
		assert.Equal(t, asst.ID, fb.AssistantID.String)
		assert.Equal(t, 2, fb.Rating)

		require.Len(t, emailsvc.SentMessages, sentBefore+1)
		msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
		require.Len(t, msg.To, 1)
		assert.Equal(t, "kabasele@test.cd", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "2/5")
	})
}

func Test_feedbackApi_queryByAssistant(t *testing.T) {
	instructor := seedUser(t, "Ms. Mwamba", "mwamba@test.cd")
	student := seedUser(t, "Olivier", "olivier@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Listed Tutor", true)

	body := marchallObj(t, feedback.NewFeedback{AssistantID: asst.ID, Rating: 5, Comment: "Top"})
	req, rec := newIdentifiedRequest(http.MethodPost, "/v1/feedback", student, "student", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	tests := []httpTest{
		{
			name:     "students may not list",
			method:   http.MethodGet,
			path:     "/v1/feedback/assistants/" + asst.ID,
			userID:   student,
			role:     "student",
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errForbidden),
		},
		{
			name:     "instructor lists",
			method:   http.MethodGet,
			path:     "/v1/feedback/assistants/" + asst.ID,
			userID:   instructor,
			role:     "instructor",
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newIdentifiedRequest(tt.method, tt.path, tt.userID, tt.role, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var fbs []feedback.Feedback
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fbs))
				require.Len(t, fbs, 1)
				assert.Equal(t, "Top", fbs[0].Comment)
			}
		})
	}
}
