// Package navigator implements the content navigation store: the
// current location within the tour content tree, the listing of
// children at that location, and a sort projection over the listing.
//
// All structural mutations funnel through the operation set on
// Navigator so the listing and the breadcrumb never diverge. Readers
// get immutable snapshots; the backing collection is owned by the
// collaborator behind the Catalog interface.
package navigator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/amsel/raido/internal/apperr"
	"github.com/amsel/raido/internal/models"
)

// Upload carries one file payload into the catalog.
type Upload struct {
	Name            string
	MIME            string
	Data            []byte
	DurationSeconds int
}

// Catalog is the backend collaborator the navigator reads and mutates
// through. Implementations: the in-process node service and the REST
// client.
type Catalog interface {
	Node(ctx context.Context, id string) (*models.Item, error)
	Children(ctx context.Context, id string) ([]models.Item, error)
	CreateFolder(ctx context.Context, name string, kind models.FolderKind, parentID string) (*models.Item, error)
	Delete(ctx context.Context, id string) error
	Rename(ctx context.Context, id, name string) error
	Upload(ctx context.Context, repoID string, up Upload) (*models.Item, error)
	SetPosition(ctx context.Context, id string, position int) error
	ImageCount(ctx context.Context) (int, error)
}

// Snapshot is an immutable view of the navigation state. Sorted is the
// derived projection of Listing under the current sort parameters.
type Snapshot struct {
	Path      []models.PathSegment
	Listing   []models.Item
	Sorted    []models.Item
	SortBy    SortBy
	SortOrder SortOrder
	Selected  map[string]struct{}
	Loading   bool
	Processing bool
	Err       string

	AudioAvailable bool
	ImageAvailable bool
}

// Navigator owns the navigation state. All exported methods are safe
// for concurrent use; state is applied when the underlying catalog call
// settles, so two racing navigations resolve last-settle-wins, not
// last-invoked-wins. Callers needing stricter ordering must serialize
// invocation themselves.
type Navigator struct {
	catalog Catalog

	mu         sync.Mutex
	path       []models.PathSegment
	listing    []models.Item
	sortBy     SortBy
	sortOrder  SortOrder
	selected   map[string]struct{}
	loading    bool
	processing bool
	lastErr    string

	audioAvail bool
	imageAvail bool
}

// New creates a navigator positioned at the root with a name-ascending
// sort.
func New(c Catalog) *Navigator {
	return &Navigator{
		catalog:   c,
		path:      []models.PathSegment{rootSegment()},
		sortBy:    SortByName,
		sortOrder: OrderAsc,
		selected:  make(map[string]struct{}),
	}
}

func rootSegment() models.PathSegment {
	return models.PathSegment{ItemID: models.RootID, Name: models.RootName}
}

// Snapshot returns a copy of the current state. The sorted projection
// is recomputed on demand rather than cached.
func (n *Navigator) Snapshot() Snapshot {
	n.mu.Lock()
	defer n.mu.Unlock()

	sel := make(map[string]struct{}, len(n.selected))
	for id := range n.selected {
		sel[id] = struct{}{}
	}
	listing := append([]models.Item(nil), n.listing...)
	return Snapshot{
		Path:           append([]models.PathSegment(nil), n.path...),
		Listing:        listing,
		Sorted:         SortItems(listing, n.sortBy, n.sortOrder),
		SortBy:         n.sortBy,
		SortOrder:      n.sortOrder,
		Selected:       sel,
		Loading:        n.loading,
		Processing:     n.processing,
		Err:            n.lastErr,
		AudioAvailable: n.audioAvail,
		ImageAvailable: n.imageAvail,
	}
}

// CurrentID returns the id of the path's last segment.
func (n *Navigator) CurrentID() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.path[len(n.path)-1].ItemID
}

// NavigateTo moves the store to the given folder. The ancestry chain is
// resolved by following parent links up to the root; a dangling link
// fails closed by degrading to the last resolvable ancestor instead of
// erroring. Calling it twice with the same id is idempotent modulo
// concurrent mutation of the backing collection.
func (n *Navigator) NavigateTo(ctx context.Context, itemID string) error {
	n.mu.Lock()
	n.loading = true
	current := append([]models.PathSegment(nil), n.path...)
	n.mu.Unlock()

	path, targetID := n.resolvePath(ctx, itemID, current)

	children, err := n.catalog.Children(ctx, targetID)
	if err != nil {
		n.fail(err, true)
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.path = path
	n.listing = children
	n.loading = false
	n.lastErr = ""
	n.latchAvailability(children)
	return nil
}

// resolvePath builds the root-to-leaf breadcrumb for itemID. If the
// target itself cannot be resolved, it degrades to the deepest
// still-valid segment of the previous path (ultimately the root). If an
// ancestor link is dangling mid-chain, the chain is truncated at the
// last resolvable ancestor and rooted there.
func (n *Navigator) resolvePath(ctx context.Context, itemID string, previous []models.PathSegment) ([]models.PathSegment, string) {
	if itemID == models.RootID {
		return []models.PathSegment{rootSegment()}, models.RootID
	}

	var segs []models.PathSegment
	visited := make(map[string]struct{})
	cur := itemID
	for cur != models.RootID && cur != "" {
		if _, ok := visited[cur]; ok {
			break // defensive: parent cycle
		}
		visited[cur] = struct{}{}

		it, err := n.catalog.Node(ctx, cur)
		if err != nil {
			if len(segs) == 0 {
				return n.degradeAlong(ctx, itemID, previous)
			}
			break
		}
		segs = append([]models.PathSegment{{ItemID: it.ID, Name: it.Name}}, segs...)
		cur = it.ParentID
	}
	return append([]models.PathSegment{rootSegment()}, segs...), itemID
}

// degradeAlong walks the previous breadcrumb from the leaf upward and
// lands on the deepest segment that still resolves. The root always
// resolves.
func (n *Navigator) degradeAlong(ctx context.Context, missing string, previous []models.PathSegment) ([]models.PathSegment, string) {
	start := len(previous) - 1
	for i, seg := range previous {
		if seg.ItemID == missing {
			start = i - 1
			break
		}
	}
	for i := start; i > 0; i-- {
		id := previous[i].ItemID
		if _, err := n.catalog.Node(ctx, id); err == nil {
			return previous[:i+1], id
		}
	}
	return []models.PathSegment{rootSegment()}, models.RootID
}

// CreateFolder adds a new folder under the current location and shows
// it in the listing. The name must be non-empty and the kind one of the
// known folder kinds; which kinds a given context offers is the
// caller's policy, not enforced here.
func (n *Navigator) CreateFolder(ctx context.Context, name string, kind models.FolderKind) (*models.Item, error) {
	if strings.TrimSpace(name) == "" {
		err := fmt.Errorf("%w: folder name is required", apperr.ErrInvalid)
		n.fail(err, false)
		return nil, err
	}
	if !models.ValidFolderKind(kind) {
		err := fmt.Errorf("%w: unknown folder kind %q", apperr.ErrInvalid, kind)
		n.fail(err, false)
		return nil, err
	}

	parentID := n.CurrentID()
	n.setProcessing(true)

	it, err := n.catalog.CreateFolder(ctx, name, kind, parentID)
	if err != nil {
		n.fail(err, false)
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.processing = false
	n.lastErr = ""
	if it.ParentID == n.path[len(n.path)-1].ItemID {
		n.listing = append(n.listing, *it)
	}
	return it, nil
}

// UploadFile classifies the payload by MIME prefix and adds the
// resulting file item to the current repository folder. Non-audio,
// non-image payloads are rejected before any state mutation.
func (n *Navigator) UploadFile(ctx context.Context, up Upload) (*models.Item, error) {
	if !strings.HasPrefix(up.MIME, "audio/") && !strings.HasPrefix(up.MIME, "image/") {
		err := fmt.Errorf("%w: unsupported media type %q", apperr.ErrInvalid, up.MIME)
		n.fail(err, false)
		return nil, err
	}

	repoID := n.CurrentID()
	n.setProcessing(true)

	it, err := n.catalog.Upload(ctx, repoID, up)
	if err != nil {
		n.fail(err, false)
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.processing = false
	n.lastErr = ""
	if it.ParentID == n.path[len(n.path)-1].ItemID {
		n.listing = append(n.listing, *it)
	}
	n.latchAvailability([]models.Item{*it})
	return it, nil
}

// DeleteItem removes an item. On success the item disappears from the
// listing and the selection set together. Descendants of a deleted
// folder are orphaned, not cascaded; see the catalog contract.
func (n *Navigator) DeleteItem(ctx context.Context, id string) error {
	n.setProcessing(true)
	if err := n.catalog.Delete(ctx, id); err != nil {
		n.fail(err, false)
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.processing = false
	n.lastErr = ""
	kept := n.listing[:0]
	for _, it := range n.listing {
		if it.ID != id {
			kept = append(kept, it)
		}
	}
	n.listing = kept
	delete(n.selected, id)
	return nil
}

// RenameItem updates an item's display name without changing identity,
// parentage, or ordering.
func (n *Navigator) RenameItem(ctx context.Context, id, newName string) error {
	if strings.TrimSpace(newName) == "" {
		err := fmt.Errorf("%w: name is required", apperr.ErrInvalid)
		n.fail(err, false)
		return err
	}

	n.setProcessing(true)
	if err := n.catalog.Rename(ctx, id, newName); err != nil {
		n.fail(err, false)
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.processing = false
	n.lastErr = ""
	for i := range n.listing {
		if n.listing[i].ID == id {
			n.listing[i].Name = newName
		}
	}
	return nil
}

// SetPosition overwrites the ordering label of a single image item.
// The target must exist and be an image, and the new position must fall
// in [0, image count); the count spans every image in the catalog, not
// just same-parent siblings. Neighbours are never renumbered, so
// position collisions are allowed and left to the caller.
func (n *Navigator) SetPosition(ctx context.Context, id string, position int) error {
	it, err := n.catalog.Node(ctx, id)
	if err != nil {
		n.fail(err, false)
		return err
	}
	if !it.IsImage() {
		err := fmt.Errorf("%w: item %s is not an image", apperr.ErrInvalid, id)
		n.fail(err, false)
		return err
	}
	total, err := n.catalog.ImageCount(ctx)
	if err != nil {
		n.fail(err, false)
		return err
	}
	if position < 0 || position >= total {
		err := fmt.Errorf("%w: position %d out of range [0, %d)", apperr.ErrInvalid, position, total)
		n.fail(err, false)
		return err
	}

	n.setProcessing(true)
	if err := n.catalog.SetPosition(ctx, id, position); err != nil {
		n.fail(err, false)
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.processing = false
	n.lastErr = ""
	for i := range n.listing {
		if n.listing[i].ID == id && n.listing[i].Image != nil {
			img := *n.listing[i].Image
			img.Position = position
			n.listing[i].Image = &img
		}
	}
	return nil
}

// SetSortBy updates the sort key. Membership of the sorted projection
// never changes, only its order.
func (n *Navigator) SetSortBy(by SortBy) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sortBy = by
}

// SetSortOrder updates the sort direction.
func (n *Navigator) SetSortOrder(order SortOrder) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sortOrder = order
}

// ToggleItemSelection flips an item in or out of the selection set.
// Pure set toggle; listing and path are untouched.
func (n *Navigator) ToggleItemSelection(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if _, ok := n.selected[id]; ok {
		delete(n.selected, id)
	} else {
		n.selected[id] = struct{}{}
	}
}

func (n *Navigator) setProcessing(v bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.processing = v
}

// fail records the failure message and clears the busy flag. The error
// field holds only the most recent failure.
func (n *Navigator) fail(err error, navigation bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastErr = err.Error()
	if navigation {
		n.loading = false
	} else {
		n.processing = false
	}
}

// latchAvailability marks audio/image availability once an item of that
// kind has been seen anywhere. The latches never reset within a
// session.
func (n *Navigator) latchAvailability(items []models.Item) {
	for _, it := range items {
		if it.IsAudio() {
			n.audioAvail = true
		}
		if it.IsImage() {
			n.imageAvail = true
		}
	}
}
