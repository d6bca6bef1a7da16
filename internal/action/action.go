// Package action defines the actions a user can trigger from an inline
// keyboard, and their encoding as compact callback-data tokens.
//
// Tokens are ASCII and underscore-delimited, which means provider type keys
// must never contain an underscore. Telegram caps callback data at 64
// bytes, so fields stay short.
package action

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind enumerates the closed set of callback actions.
type Kind int

const (
	// KindSelectType opens page 0 of one provider type.
	KindSelectType Kind = iota
	// KindPage navigates to a specific page of a provider type.
	KindPage
	// KindStats shows the per-type result statistics.
	KindStats
	// KindBackToTypes returns to the type-selection screen.
	KindBackToTypes
	// KindQuickSearch scopes the user's next search to one provider.
	KindQuickSearch
	// KindReveal discloses a previously rendered link.
	KindReveal
	// KindBackToMain dismisses an inline screen back to the main menu.
	KindBackToMain
)

// Action is the decoded form of a callback token.
type Action struct {
	Kind         Kind
	ResourceType string
	UserID       int64
	Page         int
	Item         int
}

// DecodeError describes a callback token that could not be decoded.
type DecodeError struct {
	Token  string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode callback token %q: %s", e.Token, e.Reason)
}

// SelectType encodes the action opening a provider type's first page.
func SelectType(resourceType string, userID int64) string {
	return fmt.Sprintf("type_%s_%d", resourceType, userID)
}

// Page encodes a page-navigation action.
func Page(resourceType string, page int, userID int64) string {
	return fmt.Sprintf("page_%s_%d_%d", resourceType, page, userID)
}

// Stats encodes the statistics-screen action.
func Stats(userID int64) string {
	return fmt.Sprintf("stats_%d", userID)
}

// BackToTypes encodes the return-to-type-selection action.
func BackToTypes(userID int64) string {
	return fmt.Sprintf("back_types_%d", userID)
}

// QuickSearch encodes a quick-search provider choice.
func QuickSearch(resourceType string) string {
	return "quick_" + resourceType
}

// Reveal encodes a link-reveal action. The same string doubles as the
// session reveal key, so an inbound reveal token maps straight to its
// stored URL.
func Reveal(userID int64, page, item int) string {
	return fmt.Sprintf("copy_%d_%d_%d", userID, page, item)
}

// BackToMain encodes the return-to-main-menu action.
func BackToMain() string {
	return "back_main"
}

// Decode parses a callback token into an Action. Malformed tokens (unknown
// kind, wrong field count, non-integer numeric field) yield a DecodeError;
// Decode never panics.
func Decode(token string) (Action, error) {
	parts := strings.Split(token, "_")

	fail := func(reason string) (Action, error) {
		return Action{}, &DecodeError{Token: token, Reason: reason}
	}

	parseInt64 := func(s string) (int64, bool) {
		v, err := strconv.ParseInt(s, 10, 64)
		return v, err == nil
	}

	switch parts[0] {
	case "type":
		if len(parts) != 3 {
			return fail("expected type_<resourceType>_<userID>")
		}
		userID, ok := parseInt64(parts[2])
		if !ok {
			return fail("user id is not an integer")
		}
		return Action{Kind: KindSelectType, ResourceType: parts[1], UserID: userID}, nil

	case "page":
		if len(parts) != 4 {
			return fail("expected page_<resourceType>_<page>_<userID>")
		}
		page, err := strconv.Atoi(parts[2])
		if err != nil {
			return fail("page is not an integer")
		}
		userID, ok := parseInt64(parts[3])
		if !ok {
			return fail("user id is not an integer")
		}
		return Action{Kind: KindPage, ResourceType: parts[1], Page: page, UserID: userID}, nil

	case "stats":
		if len(parts) != 2 {
			return fail("expected stats_<userID>")
		}
		userID, ok := parseInt64(parts[1])
		if !ok {
			return fail("user id is not an integer")
		}
		return Action{Kind: KindStats, UserID: userID}, nil

	case "back":
		if len(parts) == 2 && parts[1] == "main" {
			return Action{Kind: KindBackToMain}, nil
		}
		if len(parts) == 3 && parts[1] == "types" {
			userID, ok := parseInt64(parts[2])
			if !ok {
				return fail("user id is not an integer")
			}
			return Action{Kind: KindBackToTypes, UserID: userID}, nil
		}
		return fail("expected back_main or back_types_<userID>")

	case "quick":
		if len(parts) != 2 || parts[1] == "" {
			return fail("expected quick_<resourceType>")
		}
		return Action{Kind: KindQuickSearch, ResourceType: parts[1]}, nil

	case "copy":
		if len(parts) != 4 {
			return fail("expected copy_<userID>_<page>_<item>")
		}
		userID, ok := parseInt64(parts[1])
		if !ok {
			return fail("user id is not an integer")
		}
		page, err := strconv.Atoi(parts[2])
		if err != nil {
			return fail("page is not an integer")
		}
		item, err := strconv.Atoi(parts[3])
		if err != nil {
			return fail("item is not an integer")
		}
		return Action{Kind: KindReveal, UserID: userID, Page: page, Item: item}, nil
	}

	return fail("unknown action kind")
}
