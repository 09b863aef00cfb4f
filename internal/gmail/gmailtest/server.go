// Package gmailtest provides an in-memory fake of the Gmail REST API for
// tests. Point a client at it with option.WithEndpoint(s.Endpoint()) and
// option.WithHTTPClient(s.Client()).
package gmailtest

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"

	gomessage "github.com/emersion/go-message"
	gmailapi "google.golang.org/api/gmail/v1"
)

// SystemLabels are present in every fake mailbox.
var SystemLabels = []string{"INBOX", "UNREAD", "STARRED", "SENT", "DRAFT", "TRASH", "SPAM"}

// ProfileAddress is the mailbox address the fake reports.
const ProfileAddress = "me@example.com"

const basePath = "/gmail/v1/users/{user}"

// Server is a fake Gmail API backed by maps. All methods are safe for
// concurrent use.
type Server struct {
	srv *httptest.Server

	mu          sync.Mutex
	nextID      int
	messages    []*gmailapi.Message
	drafts      []*gmailapi.Draft
	labels      []*gmailapi.Label
	filters     []*gmailapi.Filter
	attachments map[string]string
	failures    map[string][]int
	calls       map[string]int
	queries     map[string]url.Values

	deleteForbidden bool
}

// New starts a fake server that is closed when the test ends.
func New(tb testing.TB) *Server {
	tb.Helper()

	s := &Server{
		attachments: make(map[string]string),
		failures:    make(map[string][]int),
		calls:       make(map[string]int),
		queries:     make(map[string]url.Values),
	}
	for _, name := range SystemLabels {
		s.labels = append(s.labels, &gmailapi.Label{Id: name, Name: name, Type: "system"})
	}

	mux := http.NewServeMux()
	s.route(mux, "GET "+basePath+"/profile", "users.getProfile", s.getProfile)
	s.route(mux, "GET "+basePath+"/messages", "messages.list", s.listMessages)
	s.route(mux, "GET "+basePath+"/messages/{id}", "messages.get", s.getMessage)
	s.route(mux, "POST "+basePath+"/messages/send", "messages.send", s.sendMessage)
	s.route(mux, "POST "+basePath+"/messages/{id}/modify", "messages.modify", s.modifyMessage)
	s.route(mux, "POST "+basePath+"/messages/{id}/trash", "messages.trash", s.trashMessage)
	s.route(mux, "POST "+basePath+"/messages/{id}/untrash", "messages.untrash", s.untrashMessage)
	s.route(mux, "DELETE "+basePath+"/messages/{id}", "messages.delete", s.deleteMessage)
	s.route(mux, "GET "+basePath+"/messages/{id}/attachments/{attachmentId}", "messages.attachments.get", s.getAttachment)

	s.route(mux, "POST "+basePath+"/drafts", "drafts.create", s.createDraft)
	s.route(mux, "GET "+basePath+"/drafts", "drafts.list", s.listDrafts)
	s.route(mux, "GET "+basePath+"/drafts/{id}", "drafts.get", s.getDraft)
	s.route(mux, "POST "+basePath+"/drafts/send", "drafts.send", s.sendDraft)
	s.route(mux, "DELETE "+basePath+"/drafts/{id}", "drafts.delete", s.deleteDraft)

	s.route(mux, "GET "+basePath+"/labels", "labels.list", s.listLabels)
	s.route(mux, "POST "+basePath+"/labels", "labels.create", s.createLabel)
	s.route(mux, "DELETE "+basePath+"/labels/{id}", "labels.delete", s.deleteLabel)

	s.route(mux, "GET "+basePath+"/threads/{id}", "threads.get", s.getThread)
	s.route(mux, "POST "+basePath+"/threads/{id}/modify", "threads.modify", s.modifyThread)
	s.route(mux, "POST "+basePath+"/threads/{id}/trash", "threads.trash", s.trashThread)

	s.route(mux, "GET "+basePath+"/settings/filters", "settings.filters.list", s.listFilters)
	s.route(mux, "POST "+basePath+"/settings/filters", "settings.filters.create", s.createFilter)
	s.route(mux, "GET "+basePath+"/settings/filters/{id}", "settings.filters.get", s.getFilter)
	s.route(mux, "DELETE "+basePath+"/settings/filters/{id}", "settings.filters.delete", s.deleteFilter)

	s.srv = httptest.NewServer(mux)
	tb.Cleanup(s.srv.Close)
	return s
}

// Endpoint returns the base URL to pass to option.WithEndpoint.
func (s *Server) Endpoint() string {
	return s.srv.URL + "/"
}

// Client returns an HTTP client for the server.
func (s *Server) Client() *http.Client {
	return s.srv.Client()
}

// Fail makes the next len(codes) calls of op answer with the given status
// codes, in order.
func (s *Server) Fail(op string, codes ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = append(s.failures[op], codes...)
}

// Calls returns how many requests op has received, failed ones included.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Query returns the query parameters of the last request of op.
func (s *Server) Query(op string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[op]
}

// ForbidDelete makes permanent message deletion answer 403 as it does
// without the full mailbox scope.
func (s *Server) ForbidDelete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteForbidden = true
}

// AddMessage stores a message. A missing ThreadId defaults to the message ID.
func (s *Server) AddMessage(m *gmailapi.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ThreadId == "" {
		m.ThreadId = m.Id
	}
	s.messages = append(s.messages, m)
}

// AddAttachment stores attachment bytes retrievable by attachment ID.
func (s *Server) AddAttachment(attachmentID string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[attachmentID] = base64.URLEncoding.EncodeToString(data)
}

// AddRawAttachment stores already encoded attachment data.
func (s *Server) AddRawAttachment(attachmentID, data string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachments[attachmentID] = data
}

// AddFilter stores a filter, assigning an ID if it has none.
func (s *Server) AddFilter(f *gmailapi.Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.Id == "" {
		f.Id = s.newID("filter")
	}
	s.filters = append(s.filters, f)
}

// Message returns the stored message with the given ID, or nil.
func (s *Server) Message(id string) *gmailapi.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findMessage(id)
	if m == nil {
		return nil
	}
	cp := *m
	cp.LabelIds = slices.Clone(m.LabelIds)
	return &cp
}

// Messages returns how many messages the mailbox holds.
func (s *Server) Messages() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// Draft returns the stored draft with the given ID, or nil.
func (s *Server) Draft(id string) *gmailapi.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDraft(id)
	if d == nil {
		return nil
	}
	cp := *d
	return &cp
}

// Filters returns the stored filters.
func (s *Server) Filters() []*gmailapi.Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.filters)
}

// Labels returns the stored labels.
func (s *Server) Labels() []*gmailapi.Label {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.labels)
}

type handlerFunc func(w http.ResponseWriter, r *http.Request)

func (s *Server) route(mux *http.ServeMux, pattern, op string, h handlerFunc) {
	mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls[op]++
		s.queries[op] = r.URL.Query()
		var code int
		if queued := s.failures[op]; len(queued) > 0 {
			code, s.failures[op] = queued[0], queued[1:]
		}
		s.mu.Unlock()

		if code != 0 {
			writeError(w, code, http.StatusText(code), reasonFor(code))
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		h(w, r)
	})
}

func reasonFor(code int) string {
	switch code {
	case http.StatusTooManyRequests:
		return "rateLimitExceeded"
	case http.StatusNotFound:
		return "notFound"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusBadRequest:
		return "invalidArgument"
	default:
		return "backendError"
	}
}

func writeError(w http.ResponseWriter, code int, message, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
			"errors": []map[string]string{
				{"reason": reason, "message": message},
			},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func notFound(w http.ResponseWriter, kind, id string) {
	writeError(w, http.StatusNotFound, fmt.Sprintf("%s %s not found", kind, id), "notFound")
}

func (s *Server) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *Server) findMessage(id string) *gmailapi.Message {
	for _, m := range s.messages {
		if m.Id == id {
			return m
		}
	}
	return nil
}

func (s *Server) findDraft(id string) *gmailapi.Draft {
	for _, d := range s.drafts {
		if d.Id == id {
			return d
		}
	}
	return nil
}

func (s *Server) labelID(nameOrID string) string {
	for _, l := range s.labels {
		if strings.EqualFold(l.Id, nameOrID) || strings.EqualFold(l.Name, nameOrID) {
			return l.Id
		}
	}
	return nameOrID
}

// matches implements the subset of the search syntax the tests use:
// in:<label>, is:<label>, label:<name> and free text matched against the
// subject and snippet.
func (s *Server) matches(m *gmailapi.Message, query string) bool {
	wantTrash := false
	for term := range strings.FieldsSeq(query) {
		key, value, found := strings.Cut(term, ":")
		switch {
		case found && (key == "in" || key == "is" || key == "label"):
			id := s.labelID(value)
			if id == "TRASH" {
				wantTrash = true
			}
			if !slices.Contains(m.LabelIds, id) {
				return false
			}
		default:
			text := strings.ToLower(m.Snippet + " " + headerValue(m, "Subject"))
			if !strings.Contains(text, strings.ToLower(term)) {
				return false
			}
		}
	}
	return wantTrash || !slices.Contains(m.LabelIds, "TRASH")
}

func headerValue(m *gmailapi.Message, name string) string {
	if m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// view returns the message as the API returns it for the given format.
func view(m *gmailapi.Message, format string, headers []string) *gmailapi.Message {
	out := &gmailapi.Message{
		Id:           m.Id,
		ThreadId:     m.ThreadId,
		LabelIds:     m.LabelIds,
		Snippet:      m.Snippet,
		HistoryId:    m.HistoryId,
		InternalDate: m.InternalDate,
		SizeEstimate: m.SizeEstimate,
	}
	switch format {
	case "minimal":
	case "metadata":
		if m.Payload != nil {
			p := &gmailapi.MessagePart{MimeType: m.Payload.MimeType}
			for _, h := range m.Payload.Headers {
				if len(headers) == 0 || slices.ContainsFunc(headers, func(want string) bool {
					return strings.EqualFold(want, h.Name)
				}) {
					p.Headers = append(p.Headers, h)
				}
			}
			out.Payload = p
		}
	case "raw":
		out.Raw = m.Raw
	default:
		out.Payload = m.Payload
	}
	return out
}

func pageBounds(q url.Values, total int) (start, end int, next string) {
	start, _ = strconv.Atoi(q.Get("pageToken"))
	size, err := strconv.Atoi(q.Get("maxResults"))
	if err != nil || size <= 0 {
		size = 100
	}
	start = min(start, total)
	end = min(start+size, total)
	if end < total {
		next = strconv.Itoa(end)
	}
	return start, end, next
}

func (s *Server) listMessages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var found []*gmailapi.Message
	for _, m := range s.messages {
		if slices.Contains(m.LabelIds, "DRAFT") {
			continue
		}
		if s.matches(m, q.Get("q")) {
			found = append(found, &gmailapi.Message{Id: m.Id, ThreadId: m.ThreadId})
		}
	}
	start, end, next := pageBounds(q, len(found))
	writeJSON(w, &gmailapi.ListMessagesResponse{
		Messages:           found[start:end],
		NextPageToken:      next,
		ResultSizeEstimate: int64(len(found)),
	})
}

func (s *Server) getMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := s.findMessage(id)
	if m == nil {
		notFound(w, "message", id)
		return
	}
	q := r.URL.Query()
	writeJSON(w, view(m, q.Get("format"), q["metadataHeaders"]))
}

func (s *Server) sendMessage(w http.ResponseWriter, r *http.Request) {
	var req gmailapi.Message
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalidArgument")
		return
	}
	m, err := s.storeRaw(req.Raw, req.ThreadId, []string{"SENT"})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalidArgument")
		return
	}
	writeJSON(w, &gmailapi.Message{Id: m.Id, ThreadId: m.ThreadId, LabelIds: m.LabelIds})
}

func (s *Server) modifyMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := s.findMessage(id)
	if m == nil {
		notFound(w, "message", id)
		return
	}
	var req gmailapi.ModifyMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalidArgument")
		return
	}
	applyLabels(m, req.AddLabelIds, req.RemoveLabelIds)
	writeJSON(w, view(m, "minimal", nil))
}

func (s *Server) trashMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := s.findMessage(id)
	if m == nil {
		notFound(w, "message", id)
		return
	}
	applyLabels(m, []string{"TRASH"}, []string{"INBOX"})
	writeJSON(w, view(m, "minimal", nil))
}

func (s *Server) untrashMessage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	m := s.findMessage(id)
	if m == nil {
		notFound(w, "message", id)
		return
	}
	applyLabels(m, nil, []string{"TRASH"})
	writeJSON(w, view(m, "minimal", nil))
}

func (s *Server) deleteMessage(w http.ResponseWriter, r *http.Request) {
	if s.deleteForbidden {
		writeError(w, http.StatusForbidden, "Request had insufficient authentication scopes.", "insufficientPermissions")
		return
	}
	id := r.PathValue("id")
	i := slices.IndexFunc(s.messages, func(m *gmailapi.Message) bool { return m.Id == id })
	if i < 0 {
		notFound(w, "message", id)
		return
	}
	s.messages = slices.Delete(s.messages, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getAttachment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("attachmentId")
	if s.findMessage(r.PathValue("id")) == nil {
		notFound(w, "message", r.PathValue("id"))
		return
	}
	data, ok := s.attachments[id]
	if !ok {
		notFound(w, "attachment", id)
		return
	}
	body := &gmailapi.MessagePartBody{AttachmentId: id, Data: data}
	if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
		body.Size = int64(len(decoded))
	}
	writeJSON(w, body)
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	var req gmailapi.Draft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == nil {
		writeError(w, http.StatusBadRequest, "draft message is required", "invalidArgument")
		return
	}
	m, err := s.storeRaw(req.Message.Raw, req.Message.ThreadId, []string{"DRAFT"})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalidArgument")
		return
	}
	d := &gmailapi.Draft{Id: s.newID("draft"), Message: m}
	s.drafts = append(s.drafts, d)
	writeJSON(w, &gmailapi.Draft{
		Id:      d.Id,
		Message: &gmailapi.Message{Id: m.Id, ThreadId: m.ThreadId, LabelIds: m.LabelIds},
	})
}

func (s *Server) listDrafts(w http.ResponseWriter, r *http.Request) {
	refs := make([]*gmailapi.Draft, 0, len(s.drafts))
	for _, d := range s.drafts {
		refs = append(refs, &gmailapi.Draft{
			Id:      d.Id,
			Message: &gmailapi.Message{Id: d.Message.Id, ThreadId: d.Message.ThreadId},
		})
	}
	start, end, next := pageBounds(r.URL.Query(), len(refs))
	writeJSON(w, &gmailapi.ListDraftsResponse{
		Drafts:             refs[start:end],
		NextPageToken:      next,
		ResultSizeEstimate: int64(len(refs)),
	})
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	d := s.findDraft(id)
	if d == nil {
		notFound(w, "draft", id)
		return
	}
	q := r.URL.Query()
	writeJSON(w, &gmailapi.Draft{Id: d.Id, Message: view(d.Message, q.Get("format"), q["metadataHeaders"])})
}

func (s *Server) sendDraft(w http.ResponseWriter, r *http.Request) {
	var req gmailapi.Draft
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalidArgument")
		return
	}
	i := slices.IndexFunc(s.drafts, func(d *gmailapi.Draft) bool { return d.Id == req.Id })
	if i < 0 {
		notFound(w, "draft", req.Id)
		return
	}
	m := s.drafts[i].Message
	s.drafts = slices.Delete(s.drafts, i, i+1)
	m.LabelIds = []string{"SENT"}
	writeJSON(w, &gmailapi.Message{Id: m.Id, ThreadId: m.ThreadId, LabelIds: m.LabelIds})
}

func (s *Server) deleteDraft(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	i := slices.IndexFunc(s.drafts, func(d *gmailapi.Draft) bool { return d.Id == id })
	if i < 0 {
		notFound(w, "draft", id)
		return
	}
	msgID := s.drafts[i].Message.Id
	s.drafts = slices.Delete(s.drafts, i, i+1)
	s.messages = slices.DeleteFunc(s.messages, func(m *gmailapi.Message) bool { return m.Id == msgID })
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getProfile(w http.ResponseWriter, _ *http.Request) {
	threads := make(map[string]bool)
	for _, m := range s.messages {
		if m.ThreadId != "" {
			threads[m.ThreadId] = true
		} else {
			threads[m.Id] = true
		}
	}
	writeJSON(w, &gmailapi.Profile{
		EmailAddress:  ProfileAddress,
		MessagesTotal: int64(len(s.messages)),
		ThreadsTotal:  int64(len(threads)),
		HistoryId:     1,
	})
}

func (s *Server) listLabels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, &gmailapi.ListLabelsResponse{Labels: s.labels})
}

func (s *Server) createLabel(w http.ResponseWriter, r *http.Request) {
	var req gmailapi.Label
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "label name is required", "invalidArgument")
		return
	}
	for _, l := range s.labels {
		if strings.EqualFold(l.Name, req.Name) {
			writeError(w, http.StatusConflict, "Label name exists or conflicts", "duplicate")
			return
		}
	}
	s.nextID++
	label := &gmailapi.Label{
		Id:                    fmt.Sprintf("Label_%d", s.nextID),
		Name:                  req.Name,
		Type:                  "user",
		LabelListVisibility:   req.LabelListVisibility,
		MessageListVisibility: req.MessageListVisibility,
	}
	s.labels = append(s.labels, label)
	writeJSON(w, label)
}

func (s *Server) deleteLabel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	i := slices.IndexFunc(s.labels, func(l *gmailapi.Label) bool { return l.Id == id })
	if i < 0 {
		notFound(w, "label", id)
		return
	}
	if s.labels[i].Type == "system" {
		writeError(w, http.StatusBadRequest, "Invalid delete request", "invalidArgument")
		return
	}
	s.labels = slices.Delete(s.labels, i, i+1)
	for _, m := range s.messages {
		applyLabels(m, nil, []string{id})
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) threadMessages(id string) []*gmailapi.Message {
	var out []*gmailapi.Message
	for _, m := range s.messages {
		if m.ThreadId == id {
			out = append(out, m)
		}
	}
	return out
}

func (s *Server) getThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs := s.threadMessages(id)
	if len(msgs) == 0 {
		notFound(w, "thread", id)
		return
	}
	q := r.URL.Query()
	thread := &gmailapi.Thread{Id: id}
	for _, m := range msgs {
		thread.Messages = append(thread.Messages, view(m, q.Get("format"), q["metadataHeaders"]))
	}
	writeJSON(w, thread)
}

func (s *Server) modifyThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs := s.threadMessages(id)
	if len(msgs) == 0 {
		notFound(w, "thread", id)
		return
	}
	var req gmailapi.ModifyThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalidArgument")
		return
	}
	for _, m := range msgs {
		applyLabels(m, req.AddLabelIds, req.RemoveLabelIds)
	}
	writeJSON(w, &gmailapi.Thread{Id: id})
}

func (s *Server) trashThread(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	msgs := s.threadMessages(id)
	if len(msgs) == 0 {
		notFound(w, "thread", id)
		return
	}
	for _, m := range msgs {
		applyLabels(m, []string{"TRASH"}, []string{"INBOX"})
	}
	writeJSON(w, &gmailapi.Thread{Id: id})
}

func (s *Server) listFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, &gmailapi.ListFiltersResponse{Filter: s.filters})
}

func (s *Server) createFilter(w http.ResponseWriter, r *http.Request) {
	var req gmailapi.Filter
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "invalidArgument")
		return
	}
	req.Id = s.newID("filter")
	s.filters = append(s.filters, &req)
	writeJSON(w, &req)
}

func (s *Server) getFilter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	for _, f := range s.filters {
		if f.Id == id {
			writeJSON(w, f)
			return
		}
	}
	notFound(w, "filter", id)
}

func (s *Server) deleteFilter(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	i := slices.IndexFunc(s.filters, func(f *gmailapi.Filter) bool { return f.Id == id })
	if i < 0 {
		notFound(w, "filter", id)
		return
	}
	s.filters = slices.Delete(s.filters, i, i+1)
	w.WriteHeader(http.StatusNoContent)
}

func applyLabels(m *gmailapi.Message, add, remove []string) {
	m.LabelIds = slices.DeleteFunc(m.LabelIds, func(id string) bool {
		return slices.Contains(remove, id)
	})
	for _, id := range add {
		if !slices.Contains(m.LabelIds, id) {
			m.LabelIds = append(m.LabelIds, id)
		}
	}
}

// storeRaw parses a base64url RFC 822 message into a payload tree the way
// the API does and stores it. Attachment bodies are moved out of the tree
// and become retrievable by attachment ID.
func (s *Server) storeRaw(raw, threadID string, labels []string) (*gmailapi.Message, error) {
	data, err := base64.URLEncoding.DecodeString(raw)
	if err != nil {
		data, err = base64.RawURLEncoding.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid raw message: %w", err)
		}
	}

	entity, err := gomessage.Read(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid RFC 822 message: %w", err)
	}
	part, err := s.parsePart(entity, "")
	if err != nil {
		return nil, err
	}

	m := &gmailapi.Message{
		Id:           s.newID("msg"),
		ThreadId:     threadID,
		LabelIds:     labels,
		Raw:          raw,
		Payload:      part,
		SizeEstimate: int64(len(data)),
	}
	if m.ThreadId == "" {
		m.ThreadId = m.Id
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *Server) parsePart(e *gomessage.Entity, partID string) (*gmailapi.MessagePart, error) {
	mediaType, _, _ := e.Header.ContentType()
	part := &gmailapi.MessagePart{
		PartId:   partID,
		MimeType: mediaType,
		Headers:  parseHeaders(e.Header),
		Body:     &gmailapi.MessagePartBody{},
	}

	if mr := e.MultipartReader(); mr != nil {
		part.Parts = []*gmailapi.MessagePart{}
		for i := 0; ; i++ {
			child, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("invalid multipart body: %w", err)
			}
			childID := strconv.Itoa(i)
			if partID != "" {
				childID = partID + "." + childID
			}
			p, err := s.parsePart(child, childID)
			if err != nil {
				return nil, err
			}
			part.Parts = append(part.Parts, p)
		}
		return part, nil
	}

	body, err := io.ReadAll(e.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read part body: %w", err)
	}
	part.Body.Size = int64(len(body))

	if _, params, err := e.Header.ContentDisposition(); err == nil && params["filename"] != "" {
		part.Filename = params["filename"]
		id := s.newID("att")
		s.attachments[id] = base64.URLEncoding.EncodeToString(body)
		part.Body.AttachmentId = id
		return part, nil
	}
	part.Body.Data = base64.URLEncoding.EncodeToString(body)
	return part, nil
}

func parseHeaders(h gomessage.Header) []*gmailapi.MessagePartHeader {
	var out []*gmailapi.MessagePartHeader
	fields := h.Fields()
	for fields.Next() {
		value, err := fields.Text()
		if err != nil {
			value = fields.Value()
		}
		out = append(out, &gmailapi.MessagePartHeader{Name: fields.Key(), Value: value})
	}
	return out
}

// TextMessage returns a single-part text/plain message with the usual
// headers, ready for AddMessage.
func TextMessage(id, from, subject, body string, labels ...string) *gmailapi.Message {
	return &gmailapi.Message{
		Id:       id,
		LabelIds: labels,
		Snippet:  body,
		Payload: &gmailapi.MessagePart{
			MimeType: "text/plain",
			Headers: []*gmailapi.MessagePartHeader{
				{Name: "From", Value: from},
				{Name: "To", Value: "me@example.com"},
				{Name: "Subject", Value: subject},
				{Name: "Date", Value: "Mon, 19 Oct 2026 10:00:00 +0000"},
				{Name: "Message-ID", Value: "<" + id + "@mail.example.com>"},
			},
			Body: &gmailapi.MessagePartBody{
				Data: base64.URLEncoding.EncodeToString([]byte(body)),
				Size: int64(len(body)),
			},
		},
	}
}
