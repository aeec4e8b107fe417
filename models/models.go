// Package models holds the wire entities ferry receives from an instance,
// and their append only log representation.
package models

import (
	"strings"

	"github.com/go-json-experiment/json"
)

// Account is the subset of an account entity the log records need.
type Account struct {
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
}

// Attachment is a media attachment on a received status.
type Attachment struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// A Status is a single message posted by a user. It may be a reply to
// another status, or a boost of one.
type Status struct {
	ID          string       `json:"id"`
	CreatedAt   string       `json:"created_at"`
	InReplyToID string       `json:"in_reply_to_id"`
	Sensitive   bool         `json:"sensitive"`
	SpoilerText string       `json:"spoiler_text"`
	Visibility  string       `json:"visibility"`
	Content     string       `json:"content"`
	URL         string       `json:"url"`
	Account     *Account     `json:"account"`
	Reblog      *Status      `json:"reblog"`
	Attachments []Attachment `json:"media_attachments"`
}

// A Notification tells the user something happened to them or their
// statuses.
type Notification struct {
	ID        string   `json:"id"`
	Type      string   `json:"type"`
	CreatedAt string   `json:"created_at"`
	Account   *Account `json:"account"`
	Status    *Status  `json:"status"`
}

// DecodeStatuses decodes a timeline page body, a JSON array of statuses
// newest first.
func DecodeStatuses(body string) ([]*Status, error) {
	var statuses []*Status
	if err := json.UnmarshalFull(strings.NewReader(body), &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

// DecodeNotifications decodes a notification page body.
func DecodeNotifications(body string) ([]*Notification, error) {
	var notifications []*Notification
	if err := json.UnmarshalFull(strings.NewReader(body), &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

// Context is the ancestor/descendant thread around a status.
type Context struct {
	Ancestors   []*Status `json:"ancestors"`
	Descendants []*Status `json:"descendants"`
}

// DecodeContext decodes a status context body.
func DecodeContext(body string) (*Context, error) {
	var context Context
	if err := json.UnmarshalFull(strings.NewReader(body), &context); err != nil {
		return nil, err
	}
	return &context, nil
}
