package genie

import (
	"genie-adapter/internal/domain"
)

// contentRequest is the body of both start-conversation and create-message.
type contentRequest struct {
	Content string `json:"content"`
}

type entityRef struct {
	ID string `json:"id"`
}

// conversationRef is the start-conversation response. The id arrives either
// top-level as conversation_id or nested under conversation.id.
type conversationRef struct {
	ConversationID string     `json:"conversation_id"`
	Conversation   *entityRef `json:"conversation"`
}

func (r conversationRef) id() string {
	if r.ConversationID != "" {
		return r.ConversationID
	}
	if r.Conversation != nil {
		return r.Conversation.ID
	}
	return ""
}

// messageRef is the create-message response: id or message.id.
type messageRef struct {
	ID      string     `json:"id"`
	Message *entityRef `json:"message"`
}

func (r messageRef) id() string {
	if r.ID != "" {
		return r.ID
	}
	if r.Message != nil {
		return r.Message.ID
	}
	return ""
}

type messagePayload struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	Status         string              `json:"status"`
	Attachments    []attachmentPayload `json:"attachments"`
}

type attachmentPayload struct {
	AttachmentID string `json:"attachment_id"`
	Text         *struct {
		Content string `json:"content"`
	} `json:"text"`
	Query *struct {
		Query       string `json:"query"`
		Description string `json:"description"`
	} `json:"query"`
}

func (m messagePayload) toDomain() domain.GenieMessage {
	out := domain.GenieMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		Status:         domain.MessageStatus(m.Status),
		Attachments:    make([]domain.Attachment, 0, len(m.Attachments)),
	}
	for _, a := range m.Attachments {
		att := domain.Attachment{AttachmentID: a.AttachmentID}
		if a.Text != nil {
			att.Text = &domain.TextAttachment{Content: a.Text.Content}
		}
		if a.Query != nil {
			att.Query = &domain.QueryAttachment{Query: a.Query.Query, Description: a.Query.Description}
		}
		out.Attachments = append(out.Attachments, att)
	}
	return out
}

type queryResultPayload struct {
	StatementResponse *struct {
		Manifest struct {
			Schema struct {
				Columns []struct {
					Name string `json:"name"`
				} `json:"columns"`
			} `json:"schema"`
		} `json:"manifest"`
		Result struct {
			DataArray      [][]any `json:"data_array"`
			DataTypedArray []struct {
				Values []typedValue `json:"values"`
			} `json:"data_typed_array"`
		} `json:"result"`
	} `json:"statement_response"`
}

type typedValue struct {
	Str       any `json:"str"`
	Int       any `json:"int"`
	Double    any `json:"double"`
	Bool      any `json:"bool"`
	Date      any `json:"date"`
	Timestamp any `json:"timestamp"`
}

// toDomain returns nil when the payload has no statement_response.
func (p queryResultPayload) toDomain() *domain.StatementResult {
	stmt := p.StatementResponse
	if stmt == nil {
		return nil
	}
	res := &domain.StatementResult{DataArray: stmt.Result.DataArray}
	for _, c := range stmt.Manifest.Schema.Columns {
		res.Columns = append(res.Columns, c.Name)
	}
	for _, row := range stmt.Result.DataTypedArray {
		cells := make([]domain.TypedCell, 0, len(row.Values))
		for _, v := range row.Values {
			cells = append(cells, domain.TypedCell{
				Str:       v.Str,
				Int:       v.Int,
				Double:    v.Double,
				Bool:      v.Bool,
				Date:      v.Date,
				Timestamp: v.Timestamp,
			})
		}
		res.TypedArray = append(res.TypedArray, cells)
	}
	return res
}
