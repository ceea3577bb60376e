package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/darasahq/darasa/core/chat"
	inmemdb "github.com/darasahq/darasa/storage/database/inmem"
	testutil "github.com/darasahq/darasa/tests"
)

func Test_chatApi_createConversation(t *testing.T) {
	instructor := seedUser(t, "Ms. Kalala", "kalala@test.cd")
	student := seedUser(t, "Amani", "amani@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Maths Tutor", true)

	tests := []httpTest{
		{
			name: "Identity required", method: http.MethodPost, path: "/v1/conversations",
			body: marchallObj(t, chat.NewConversation{AssistantID: asst.ID}), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNoIdentity),
		},
		{
			name: "assistant_id required", method: http.MethodPost, path: "/v1/conversations",
			userID: student, body: marchallObj(t, chat.NewConversation{}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Create", method: http.MethodPost, path: "/v1/conversations",
			userID: student, body: marchallObj(t, chat.NewConversation{AssistantID: asst.ID, Title: "Algebra help"}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newIdentifiedRequest(tt.method, tt.path, tt.userID, tt.role, tt.body)
			app.ServeHTTP(rec, req)

			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusCreated {
				var conv chat.Conversation
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conv))
				assert.NotEmpty(t, conv.ID)
				assert.Equal(t, asst.ID, conv.AssistantID)
				assert.Equal(t, student, conv.StudentID)
				assert.Equal(t, "Algebra help", conv.Title)
			}
		})
	}
}

func Test_chatApi_listConversations(t *testing.T) {
	instructor := seedUser(t, "Mr. Tshimanga", "tshimanga@test.cd")
	student := seedUser(t, "Bahati", "bahati@test.cd")
	other := seedUser(t, "Chiku", "chiku@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "History Tutor", true)

	older := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Kingdoms", time.Now().Add(-time.Hour))
	newer := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Independence")
	testutil.CreateConversation(t, chatRepo, asst.ID, other, "Not mine")

	req, rec := newIdentifiedRequest(http.MethodGet, "/v1/conversations", student, "student")
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var convs []chat.ConversationWithPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs, 2)
	// most recently updated first
	assert.Equal(t, newer.ID, convs[0].ID)
	assert.Equal(t, older.ID, convs[1].ID)
	assert.Nil(t, convs[0].LastMessage)
}

func Test_chatApi_listConversations_withPreview(t *testing.T) {
	instructor := seedUser(t, "Ms. Nzuzi", "nzuzi@test.cd")
	student := seedUser(t, "Dada", "dada@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Physics Tutor", true)
	conv := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Motion")

	// sending populates the preview cache
	body := marchallObj(t, chat.SendMessageInput{Content: "What is velocity?"})
	req, rec := newIdentifiedRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/messages", student, "student", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newIdentifiedRequest(http.MethodGet, "/v1/conversations", student, "student")
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var convs []chat.ConversationWithPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.Len(t, convs, 1)
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, chat.SenderStudent, convs[0].LastMessage.Sender)
	assert.Equal(t, "What is velocity?", convs[0].LastMessage.Content)
	assert.Equal(t, 0, convs[0].LastMessage.Unread) // own send: caught up

	// an agent reply bumps the unread count
	body = marchallObj(t, map[string]string{
		"assistant_id": asst.ID,
		"content":      "Rate of change of position.",
	})
	req, rec = newIdentifiedRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/agent-reply", student, "student", body)
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)

	req, rec = newIdentifiedRequest(http.MethodGet, "/v1/conversations", student, "student")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, 1, convs[0].LastMessage.Unread)

	// loading history marks the conversation read
	req, rec = newIdentifiedRequest(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", student, "student")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req, rec = newIdentifiedRequest(http.MethodGet, "/v1/conversations", student, "student")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &convs))
	require.NotNil(t, convs[0].LastMessage)
	assert.Equal(t, 0, convs[0].LastMessage.Unread)
}

func Test_chatApi_history(t *testing.T) {
	instructor := seedUser(t, "Mr. Ilunga", "ilunga@test.cd")
	student := seedUser(t, "Eshe", "eshe@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Chemistry Tutor", true)
	conv := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Atoms")

	m1 := testutil.CreateMessage(t, chatRepo, chat.StoredMessage{
		ConversationID: conv.ID,
		Sender:         chat.SenderStudent,
		SenderUserID:   null.StringFrom(student),
		Content:        "What is an atom?",
	})
	m2 := testutil.CreateMessage(t, chatRepo, chat.StoredMessage{
		ConversationID:    conv.ID,
		Sender:            chat.SenderAgent,
		SenderAssistantID: null.StringFrom(asst.ID),
		InvocationID:      null.StringFrom("inv-hist-1"),
		Content:           "The smallest unit of matter.",
	})

	tests := []httpTest{
		{
			name: "Identity required", method: http.MethodGet, path: "/v1/conversations/" + conv.ID + "/messages",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errNoIdentity),
		},
		{
			name: "Unknown conversation", method: http.MethodGet, path: "/v1/conversations/nope/messages",
			userID: student, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Canonical shape", method: http.MethodGet, path: "/v1/conversations/" + conv.ID + "/messages",
			userID: student, wantCode: http.StatusOK,
			wantData: marchallObj(t, chat.HistoryResponse{Messages: []chat.StoredMessage{m1, m2}}),
		},
		{
			name: "Legacy shape", method: http.MethodGet, path: "/v1/conversations/" + conv.ID + "/messages?shape=history",
			userID: student, wantCode: http.StatusOK,
			wantData: marchallObj(t, chat.LegacyHistoryResponse{
				History: []chat.Message{
					{ID: m1.ID, Sender: chat.SenderStudent, Content: m1.Content, Time: m1.CreatedAt.Unix()},
					{ID: m2.ID, Sender: chat.SenderAgent, Content: m2.Content, Time: m2.CreatedAt.Unix(), InvocationID: "inv-hist-1"},
				},
				Assistant: chat.ParticipantBrief{ID: asst.ID, Name: asst.Name},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newIdentifiedRequest(tt.method, tt.path, tt.userID, tt.role, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_chatApi_send(t *testing.T) {
	instructor := seedUser(t, "Ms. Mwamba", "mwamba@test.cd")
	student := seedUser(t, "Farida", "farida@test.cd")
	intruder := seedUser(t, "Goma", "goma@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Biology Tutor", true)
	conv := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Cells")

	path := "/v1/conversations/" + conv.ID + "/messages"
	tests := []httpTest{
		{
			name: "Identity required", method: http.MethodPost, path: path,
			body: marchallObj(t, chat.SendMessageInput{Content: "hi"}), wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNoIdentity),
		},
		{
			name: "content required", method: http.MethodPost, path: path,
			userID: student, body: marchallObj(t, chat.SendMessageInput{}), wantCode: http.StatusBadRequest,
		},
		{
			name: "Not a participant", method: http.MethodPost, path: path,
			userID: intruder, body: marchallObj(t, chat.SendMessageInput{Content: "let me in"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Send", method: http.MethodPost, path: path,
			userID: student, body: marchallObj(t, chat.SendMessageInput{Content: "What is a cell?", ClientRef: "ref-1"}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newIdentifiedRequest(tt.method, tt.path, tt.userID, tt.role, tt.body)
			app.ServeHTTP(rec, req)

			checkCodeAndData(t, tt, rec)
			if rec.Code == http.StatusCreated {
				var msg chat.StoredMessage
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
				assert.NotEmpty(t, msg.ID)
				assert.Equal(t, chat.SenderStudent, msg.Sender)
				assert.Equal(t, "What is a cell?", msg.Content)
				assert.Equal(t, "ref-1", msg.ClientRef.String)
				assert.False(t, msg.InvocationID.Valid)
			}
		})
	}
}

func Test_chatApi_agentReply(t *testing.T) {
	instructor := seedUser(t, "Mr. Kasongo", "kasongo@test.cd")
	student := seedUser(t, "Hawa", "hawa@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Geo Tutor", true)
	conv := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Rivers")

	path := "/v1/conversations/" + conv.ID + "/agent-reply"
	body := marchallObj(t, map[string]string{
		"assistant_id":  asst.ID,
		"invocation_id": "inv-42",
		"content":       "The Congo river.",
	})

	req, rec := newIdentifiedRequest(http.MethodPost, path, "agent-worker", "agent", body)
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var msg chat.StoredMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msg))
	assert.Equal(t, chat.SenderAgent, msg.Sender)
	assert.Equal(t, "inv-42", msg.InvocationID.String)
	assert.Equal(t, asst.ID, msg.SenderAssistantID.String)

	// reply shows up in history
	req, rec = newIdentifiedRequest(http.MethodGet, "/v1/conversations/"+conv.ID+"/messages", student, "student")
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	var hist chat.HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &hist))
	require.Len(t, hist.Messages, 1)
	assert.Equal(t, msg.ID, hist.Messages[0].ID)
}

func Test_chatApi_typing(t *testing.T) {
	instructor := seedUser(t, "Ms. Lubaki", "lubaki@test.cd")
	student := seedUser(t, "Imani", "imani@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Eng Tutor", true)
	conv := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Essays")

	body := marchallObj(t, map[string]bool{"typing": true})
	req, rec := newIdentifiedRequest(http.MethodPost, "/v1/conversations/"+conv.ID+"/typing", instructor, "instructor", body)
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func Test_chatApi_participantsBrief(t *testing.T) {
	instructor := seedUser(t, "Mr. Mabele", "mabele@test.cd")
	student := seedUser(t, "Juma", "juma@test.cd")
	asst := testutil.CreateAssistant(t, assistantRepo, instructor, "Civics Tutor", true)
	conv := testutil.CreateConversation(t, chatRepo, asst.ID, student, "Voting")

	tests := []httpTest{
		{
			name: "Unknown conversation", method: http.MethodGet, path: "/v1/conversations/nope/participants-brief",
			userID: student, wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
		{
			name: "Brief", method: http.MethodGet, path: "/v1/conversations/" + conv.ID + "/participants-brief",
			userID: student, wantCode: http.StatusOK,
			wantData: marchallObj(t, chat.ParticipantsBrief{
				Assistant: chat.ParticipantBrief{ID: asst.ID, Name: asst.Name},
				User:      chat.ParticipantBrief{ID: student, Name: "Juma"},
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newIdentifiedRequest(tt.method, tt.path, tt.userID, tt.role, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

// seedUser registers an account row and returns its id.
func seedUser(t *testing.T, name, email string) string {
	t.Helper()
	id := uuid.NewString()
	db.AddUser(inmemdb.UserRecord{ID: id, Name: name, Email: email})
	return id
}
