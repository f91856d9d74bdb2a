// Package messages signals unread chat messages found in a local sqlite chat store.
package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/micro-ha/q5-assistants/internal/domain/signal"
	"github.com/micro-ha/q5-assistants/internal/resolvers/params"
	"github.com/micro-ha/q5-assistants/internal/resolvers/registry"
)

const (
	Kind = "messages"

	StateRead   signal.State = "read messages"
	StateUnread signal.State = "unread messages"
)

var (
	ErrInvalidPhoneNumber = errors.New("phone number has no digits")
	ErrDatabase           = errors.New("message store unavailable")
)

const unreadQuery = `
	SELECT handle.id, message.text, chat.display_name
	FROM message
	LEFT JOIN chat_message_join ON message.ROWID = chat_message_join.message_id
	LEFT JOIN chat ON chat.ROWID = chat_message_join.chat_id
	LEFT JOIN handle ON message.handle_id = handle.ROWID
	WHERE NOT message.is_from_me AND NOT message.is_read AND message.item_type = 0`

const contactQuery = `
	SELECT ZABCDRECORD.ZFIRSTNAME, ZABCDRECORD.ZLASTNAME
	FROM ZABCDPHONENUMBER
	LEFT JOIN ZABCDRECORD ON ZABCDPHONENUMBER.ZOWNER = ZABCDRECORD.Z_PK
	WHERE ZABCDPHONENUMBER.ZFULLNUMBER LIKE ?
	LIMIT 1`

// Message is one unread message. Group is nil for a direct message.
type Message struct {
	Sender string
	Text   string
	Group  *string
}

// Filter selects messages by sender name and group chat name. Matching is
// case-insensitive. A nil group criterion matches direct messages. An empty
// criteria list passes everything when excluding and nothing when including.
type Filter struct {
	Names         []string
	NamesInclude  bool
	Groups        []*string
	GroupsInclude bool
}

func (f Filter) Match(m Message) bool {
	return f.matchName(m.Sender) && f.matchGroup(m.Group)
}

func (f Filter) matchName(sender string) bool {
	if len(f.Names) == 0 {
		return !f.NamesInclude
	}
	found := false
	for _, name := range f.Names {
		if strings.EqualFold(name, sender) {
			found = true
			break
		}
	}
	return found == f.NamesInclude
}

func (f Filter) matchGroup(group *string) bool {
	if len(f.Groups) == 0 {
		return !f.GroupsInclude
	}
	found := false
	for _, criterion := range f.Groups {
		if (criterion == nil && group == nil) ||
			(criterion != nil && group != nil && strings.EqualFold(*criterion, *group)) {
			found = true
			break
		}
	}
	return found == f.GroupsInclude
}

type Resolver struct {
	name        string
	chatDB      string
	addressBook string
	filter      Filter

	mu      sync.Mutex
	desired int
}

// New builds a messages resolver from params: chat_db, addressbook_db, names,
// names_include, groups and groups_include.
func New(spec registry.Spec) (signal.Resolver, error) {
	chatDB, err := params.String(spec.Params, "chat_db")
	if err != nil {
		return nil, err
	}
	addressBook, err := params.String(spec.Params, "addressbook_db")
	if err != nil {
		return nil, err
	}
	names, err := params.Strings(spec.Params, "names")
	if err != nil {
		return nil, err
	}
	namesInclude, err := params.OptionalBool(spec.Params, "names_include", false)
	if err != nil {
		return nil, err
	}
	groups, err := params.OptionalStrings(spec.Params, "groups")
	if err != nil {
		return nil, err
	}
	groupsInclude, err := params.OptionalBool(spec.Params, "groups_include", false)
	if err != nil {
		return nil, err
	}
	return NewResolver(spec.Name, chatDB, addressBook, Filter{
		Names:         names,
		NamesInclude:  namesInclude,
		Groups:        groups,
		GroupsInclude: groupsInclude,
	}), nil
}

func NewResolver(name, chatDB, addressBook string, filter Filter) *Resolver {
	return &Resolver{name: name, chatDB: chatDB, addressBook: addressBook, filter: filter}
}

func (r *Resolver) ResolveState(ctx context.Context) (signal.State, error) {
	unread, err := QueryUnread(ctx, r.chatDB)
	if err != nil {
		return "", err
	}
	count := 0
	if len(unread) > 0 {
		contacts, err := openReadOnly(r.addressBook)
		if err != nil {
			return "", err
		}
		defer contacts.Close()
		for _, m := range unread {
			if m.Sender, err = ContactName(ctx, contacts, m.Sender); err != nil {
				return "", err
			}
			if r.filter.Match(m) {
				count++
			}
		}
	}

	r.mu.Lock()
	r.desired = count
	r.mu.Unlock()
	if count > 0 {
		return StateUnread, nil
	}
	return StateRead, nil
}

// QueryUnread lists unread incoming messages. An empty chat display name is
// treated as a direct message.
func QueryUnread(ctx context.Context, path string) ([]Message, error) {
	db, err := openReadOnly(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, unreadQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: query chat db %s: %v", ErrDatabase, path, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var sender, text, group sql.NullString
		if err := rows.Scan(&sender, &text, &group); err != nil {
			return nil, fmt.Errorf("%w: scan chat db %s: %v", ErrDatabase, path, err)
		}
		m := Message{Sender: sender.String, Text: text.String}
		if group.Valid && group.String != "" {
			g := group.String
			m.Group = &g
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ContactName resolves a phone number to "First Last" using the first matching
// address-book record, or returns the number unchanged when none matches.
func ContactName(ctx context.Context, db *sql.DB, number string) (string, error) {
	pattern, err := phonePattern(number)
	if err != nil {
		return "", err
	}
	var first, last sql.NullString
	err = db.QueryRowContext(ctx, contactQuery, pattern).Scan(&first, &last)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return number, nil
	case err != nil:
		return "", fmt.Errorf("%w: query address book: %v", ErrDatabase, err)
	}
	name := strings.TrimSpace(first.String + " " + last.String)
	if name == "" {
		return number, nil
	}
	return name, nil
}

// phonePattern turns "+1 (312) 555-0100" into "%1%3%1%2%...%0%%" so stored
// numbers match regardless of formatting.
func phonePattern(number string) (string, error) {
	var b strings.Builder
	b.WriteByte('%')
	digits := 0
	for _, r := range number {
		if r < '0' || r > '9' {
			continue
		}
		b.WriteRune(r)
		b.WriteByte('%')
		digits++
	}
	if digits == 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidPhoneNumber, number)
	}
	b.WriteByte('%')
	return b.String(), nil
}

func openReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatabase, path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDatabase, path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

var colors = signal.Table{
	StateRead:   signal.ColorLightBlue,
	StateUnread: signal.ColorLightGreen,
}

func (r *Resolver) ResolveColor(state signal.State) (string, error) {
	return colors.Color(r.name, state)
}

func (r *Resolver) ResolveMessage(state signal.State) (string, error) {
	r.mu.Lock()
	count := r.desired
	r.mu.Unlock()
	return signal.Table{
		StateUnread: strconv.Itoa(count) + " new message(s) found from " + r.name,
		StateRead:   "No new message(s) found from " + r.name,
	}.Message(r.name, state)
}
