package handler

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/blogify/blog-api/internal/core/domain"
)

// markdown renders post bodies. Raw HTML and dangerous link schemes are
// dropped because the unsafe renderer option is never set.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

func renderMarkdown(src string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return buf.String()
}

func toAccountResponse(a *domain.Account) accountResponse {
	perms := make([]string, len(a.Permissions))
	for i, p := range a.Permissions {
		perms[i] = string(p)
	}
	return accountResponse{
		ID:          a.ID,
		Name:        a.Name,
		Email:       a.Email,
		Role:        string(a.Role),
		Permissions: perms,
		IsVerified:  a.Verified,
		LastLogin:   a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}

func toAccountResponses(accounts []*domain.Account) []accountResponse {
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	return out
}

func toPostResponse(p *domain.Post) postResponse {
	resp := postResponse{
		ID:          p.ID,
		Title:       p.Title,
		Content:     p.Body,
		ContentHTML: renderMarkdown(p.Body),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if p.Author != nil {
		resp.Author = &authorResponse{ID: p.Author.ID, Name: p.Author.Name, Email: p.Author.Email}
	}
	return resp
}

func toPostResponses(posts []*domain.Post) []postResponse {
	out := make([]postResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, toPostResponse(p))
	}
	return out
}

func toEventMessage(ev domain.PostEvent) eventMessage {
	msg := eventMessage{Event: string(ev.Kind)}
	switch {
	case ev.Kind == domain.PostDeleted:
		msg.Data = ev.PostID
	case ev.Post != nil:
		msg.Data = toPostResponse(ev.Post)
	}
	return msg
}
