package paperstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/papergest/internal/paper"
)

// papersPrefix holds one owner's paper records and nothing else, so a
// prefix scan with a limit returns only papers.
func papersPrefix(ownerID string) string {
	return fmt.Sprintf("exams/owners/%s/papers", ownerID)
}

// hashPrefix holds the owner's dedup index, a sibling of papersPrefix.
func hashPrefix(ownerID, hash string) string {
	return fmt.Sprintf("exams/owners/%s/by_hash/%s", ownerID, hash)
}

// PaperKey is the key of a paper record.
func PaperKey(ownerID, paperID string) string {
	return papersPrefix(ownerID) + "/" + paperID
}

// HashKey is the dedup index entry linking a content hash to a paper.
func HashKey(ownerID, hash, paperID string) string {
	return hashPrefix(ownerID, hash) + "/" + paperID
}

// ErrInvalidID is returned for owner or paper ids that cannot be used as a
// single key segment.
var ErrInvalidID = errors.New("invalid id")

// ValidateID rejects ids that would escape or collide with their key
// segment.
func ValidateID(id string) error {
	switch {
	case id == "", id == ".", id == "..", id == "by_hash":
	case strings.ContainsAny(id, "/\\*?#% \t\r\n"):
	default:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidID, id)
}

func validateIDs(ids ...string) error {
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			return err
		}
	}
	return nil
}

// PutPaper stores the paper record and its content-hash index entry.
func (c *Client) PutPaper(ctx context.Context, p *paper.Paper) error {
	if err := validateIDs(p.OwnerID, p.ID); err != nil {
		return fmt.Errorf("put paper: %w", err)
	}
	if err := c.PutNode(ctx, PaperKey(p.OwnerID, p.ID), NodeRequest{
		Value:  p,
		Source: "papergest:" + p.ID,
	}); err != nil {
		return fmt.Errorf("put paper: %w", err)
	}
	if p.ContentHash == "" {
		return nil
	}
	if err := c.PutNode(ctx, HashKey(p.OwnerID, p.ContentHash, p.ID), NodeRequest{
		Value: map[string]any{
			"filename":   p.Filename,
			"created_at": p.CreatedAt,
		},
		Source: "papergest:" + p.ID,
	}); err != nil {
		return fmt.Errorf("put hash index: %w", err)
	}
	return nil
}

// GetPaper fetches one paper. A missing paper yields (nil, nil).
func (c *Client) GetPaper(ctx context.Context, ownerID, paperID string) (*paper.Paper, error) {
	if err := validateIDs(ownerID, paperID); err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}
	node, err := c.GetNode(ctx, PaperKey(ownerID, paperID))
	if err != nil {
		return nil, fmt.Errorf("get paper: %w", err)
	}
	if node == nil {
		return nil, nil
	}
	var p paper.Paper
	if err := json.Unmarshal(node.Value, &p); err != nil {
		return nil, fmt.Errorf("decode paper %s: %w", paperID, err)
	}
	return &p, nil
}

// ListPapers returns the owner's papers, skipping records that do not
// decode.
func (c *Client) ListPapers(ctx context.Context, ownerID string, limit int) ([]paper.Paper, error) {
	if err := ValidateID(ownerID); err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	children, err := c.ListChildren(ctx, papersPrefix(ownerID), limit)
	if err != nil {
		return nil, fmt.Errorf("list papers: %w", err)
	}
	papers := make([]paper.Paper, 0, len(children))
	for _, child := range children {
		var p paper.Paper
		if err := json.Unmarshal(child.Value, &p); err != nil || p.ID == "" {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// FindByHash returns the id of a paper already stored with this content
// hash, or "" if there is none.
func (c *Client) FindByHash(ctx context.Context, ownerID, hash string) (string, error) {
	if err := validateIDs(ownerID, hash); err != nil {
		return "", fmt.Errorf("find by hash: %w", err)
	}
	children, err := c.ListChildren(ctx, hashPrefix(ownerID, hash), 1)
	if err != nil {
		return "", fmt.Errorf("find by hash: %w", err)
	}
	if len(children) == 0 {
		return "", nil
	}
	key := children[0].Key
	if i := strings.LastIndex(key, "/"); i >= 0 {
		key = key[i+1:]
	}
	return key, nil
}

// DeletePaper removes a paper and its hash index entry. It reports whether
// the paper existed.
func (c *Client) DeletePaper(ctx context.Context, ownerID, paperID string) (bool, error) {
	p, err := c.GetPaper(ctx, ownerID, paperID)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}
	if err := c.DeleteNode(ctx, PaperKey(ownerID, paperID), false); err != nil {
		return false, fmt.Errorf("delete paper: %w", err)
	}
	if p.ContentHash != "" {
		if err := c.DeleteNode(ctx, HashKey(ownerID, p.ContentHash, paperID), false); err != nil {
			return true, fmt.Errorf("delete hash index: %w", err)
		}
	}
	return true, nil
}
