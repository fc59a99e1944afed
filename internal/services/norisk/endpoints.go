package norisk

import (
	"context"
	"net/url"
	"strconv"

	"github.com/google/uuid"
)

// CosmeticCape is a cape listed by the cosmetics browser.
type CosmeticCape struct {
	Hash             string `json:"_id"`
	Accepted         bool   `json:"accepted"`
	Uses             int    `json:"uses"`
	FirstSeen        string `json:"firstSeen"`
	ModeratorMessage string `json:"moderatorMessage,omitempty"`
}

// Pagination describes one page of results.
type Pagination struct {
	CurrentPage int `json:"currentPage"`
	PageSize    int `json:"pageSize"`
	TotalItems  int `json:"totalItems"`
	TotalPages  int `json:"totalPages"`
}

// BrowseCapesResponse is the body returned by the cape browser.
type BrowseCapesResponse struct {
	Capes      []CosmeticCape `json:"capes"`
	Pagination Pagination     `json:"pagination"`
}

// BrowseCapesOptions filters and pages the cape browser.
type BrowseCapesOptions struct {
	Page         int
	PageSize     int
	SortBy       string
	TimeFrame    string
	Experimental bool
	Token        string
}

func (o BrowseCapesOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.SortBy != "" {
		q.Set("sort_by", o.SortBy)
	}
	if o.TimeFrame != "" {
		q.Set("time_frame", o.TimeFrame)
	}
	return q
}

// BrowseCapes lists capes from the cosmetics service.
func (c *Client) BrowseCapes(ctx context.Context, opts BrowseCapesOptions) (BrowseCapesResponse, error) {
	return Get[BrowseCapesResponse](ctx, c, "cosmetics/cape/browse", opts.Token, opts.query(), opts.Experimental)
}

// DiscordLinkStatus reports whether the account identified by account has a
// linked Discord account.
func (c *Client) DiscordLinkStatus(ctx context.Context, token string, account uuid.UUID, experimental bool) (bool, error) {
	q := url.Values{}
	q.Set("uuid", account.String())
	return Get[bool](ctx, c, "core/oauth/discord/check", token, q, experimental)
}

// UnlinkDiscord removes the Discord link for account.
func (c *Client) UnlinkDiscord(ctx context.Context, token string, account uuid.UUID, experimental bool) (string, error) {
	q := url.Values{}
	q.Set("uuid", account.String())
	return DeleteText(ctx, c, "core/oauth/discord/unlink", token, q, experimental)
}
