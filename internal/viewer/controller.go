package viewer

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"sync"

	"github.com/starford/skillview/internal/apperr"
	"github.com/starford/skillview/internal/catalog"
	"github.com/starford/skillview/internal/checksum"
	"github.com/starford/skillview/internal/content"
	"github.com/starford/skillview/internal/fetch"
	"github.com/starford/skillview/internal/locator"
	"github.com/starford/skillview/internal/markdown"
	"github.com/starford/skillview/internal/parser"
)

// FallbackMessage replaces the document body when a load fails.
const FallbackMessage = "Unable to load this document. Make sure the file exists and the server can reach it."

// Snapshot is a consistent copy of the controller state.
type Snapshot struct {
	State       State
	Catalog     []catalog.Entry
	Entry       catalog.Entry
	HasEntry    bool
	Document    string
	Title       string
	Description string
	Usage       string
	Body        template.HTML
	Message     string
	Checksum    string
	RepoURL     string
	Seq         uint64
}

// Option configures a Controller.
type Option func(*Controller)

// WithHost makes documents resolve against the raw content host of host.
func WithHost(host *locator.HostContext) Option {
	return func(c *Controller) {
		c.host = host
	}
}

// WithRenderer sets the Markdown renderer. Without one, bodies are shown as
// plain text.
func WithRenderer(r markdown.Renderer) Option {
	return func(c *Controller) {
		c.renderer = r
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithOnChange registers a callback invoked with a fresh snapshot after every
// state change. It runs outside the controller lock.
func WithOnChange(fn func(Snapshot)) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// Controller owns the process-wide selection and the displayed document.
//
// Loads run in their own goroutines and are never cancelled by a newer
// selection. Each load is tagged with a sequence number and only the
// completion of the most recent load is applied.
type Controller struct {
	catalog  *catalog.Catalog
	fetcher  fetch.Fetcher
	host     *locator.HostContext
	renderer markdown.Renderer
	logger   *slog.Logger
	onChange func(Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	loads  sync.WaitGroup

	mu          sync.Mutex
	sel         Selection
	state       State
	title       string
	description string
	usage       string
	body        template.HTML
	message     string
	sum         string
	seq         uint64
}

// New creates a controller in the Idle state.
func New(cat *catalog.Catalog, fetcher fetch.Fetcher, opts ...Option) *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		catalog: cat,
		fetcher: fetcher,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start selects the first catalog entry.
func (c *Controller) Start() {
	c.selectEntry(c.catalog.First())
}

// SelectEntry activates the entry with folderID and loads its main document.
func (c *Controller) SelectEntry(folderID string) error {
	e, err := c.catalog.Lookup(folderID)
	if err != nil {
		return err
	}
	c.selectEntry(e)
	return nil
}

func (c *Controller) selectEntry(e catalog.Entry) {
	c.mu.Lock()
	c.activateLocked(e)
	c.state = EntrySelected
	snap := c.startLoadLocked()
	c.mu.Unlock()

	c.logger.Debug("viewer: entry selected", slog.String("folder", e.FolderID))
	c.notify(snap)
}

// activateLocked resets the selection and header to e.
func (c *Controller) activateLocked(e catalog.Entry) {
	c.sel.SetEntry(e)
	c.title = e.Name
	c.description = e.Description
	c.usage = ""
}

// SelectDocument activates documentID of the entry with folderID and loads
// it. Selecting a document of an inactive entry switches to that entry first.
func (c *Controller) SelectDocument(folderID, documentID string) error {
	e, err := c.catalog.Lookup(folderID)
	if err != nil {
		return err
	}
	if !e.HasDocument(documentID) {
		return fmt.Errorf("viewer: document %q of %q: %w", documentID, folderID, apperr.ErrNotFound)
	}

	c.mu.Lock()
	if active, ok := c.sel.Entry(); !ok || active.FolderID != e.FolderID {
		c.activateLocked(e)
	}
	if err := c.sel.SetDocument(documentID); err != nil {
		c.mu.Unlock()
		return err
	}
	snap := c.startLoadLocked()
	c.mu.Unlock()

	c.logger.Debug("viewer: document selected",
		slog.String("folder", folderID),
		slog.String("document", documentID))
	c.notify(snap)
	return nil
}

// LoadDocument (re)loads documentID of entry. The pair must be the active
// selection. It returns the sequence number of the new load.
func (c *Controller) LoadDocument(entry catalog.Entry, documentID string) (uint64, error) {
	c.mu.Lock()
	if !c.sel.Is(entry.FolderID, documentID) {
		c.mu.Unlock()
		return 0, fmt.Errorf("viewer: %s/%s is not the active document: %w", entry.FolderID, documentID, apperr.ErrInvalid)
	}
	snap := c.startLoadLocked()
	c.mu.Unlock()

	c.notify(snap)
	return snap.Seq, nil
}

// Reload loads the active document again. It is a no-op before Start.
func (c *Controller) Reload() {
	c.mu.Lock()
	if _, ok := c.sel.Entry(); !ok {
		c.mu.Unlock()
		return
	}
	snap := c.startLoadLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// startLoadLocked moves to DocumentLoading and fetches the active document
// in the background.
func (c *Controller) startLoadLocked() Snapshot {
	e, _ := c.sel.Entry()
	doc := c.sel.Document()

	c.seq++
	seq := c.seq
	c.state = DocumentLoading
	address := locator.ResolveAddress(c.host, e.DocumentPath(doc))

	c.loads.Add(1)
	go func() {
		defer c.loads.Done()
		raw, err := c.fetcher.Fetch(c.ctx, address)
		c.complete(seq, e, address, raw, err)
	}()

	return c.snapshotLocked()
}

type loaded struct {
	title       string
	description string
	usage       string
	body        template.HTML
	sum         string
}

// prepare runs the parse, transform and render pipeline on fetched text.
func (c *Controller) prepare(e catalog.Entry, raw string) loaded {
	doc := parser.Parse(raw)

	expected := doc.Get("name")
	if expected == "" {
		expected = e.Name
	}
	body := content.StripLeadingHeading(doc.Body, expected)

	usage := content.ExtractOverview(body)
	if usage == "" {
		usage = e.Description
	}

	return loaded{
		title:       doc.Get("name"),
		description: doc.Get("description"),
		usage:       usage,
		body:        markdown.RenderOrPlain(c.renderer, body),
		sum:         checksum.Short(raw),
	}
}

func (c *Controller) complete(seq uint64, e catalog.Entry, address, raw string, fetchErr error) {
	var res loaded
	if fetchErr == nil {
		res = c.prepare(e, raw)
	}

	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("viewer: discarding stale load",
			slog.String("address", address),
			slog.Uint64("seq", seq))
		return
	}

	if fetchErr != nil {
		c.state = LoadFailed
		c.body = ""
		c.sum = ""
		c.message = FallbackMessage
	} else {
		if res.title != "" {
			c.title = res.title
		}
		if res.description != "" {
			c.description = res.description
		}
		c.usage = res.usage
		c.body = res.body
		c.sum = res.sum
		c.message = ""
		c.state = DocumentDisplayed
	}
	snap := c.snapshotLocked()
	c.mu.Unlock()

	if fetchErr != nil {
		c.logger.Warn("viewer: load failed",
			slog.String("address", address),
			slog.String("error", fetchErr.Error()))
	} else {
		c.logger.Debug("viewer: document displayed",
			slog.String("address", address),
			slog.String("checksum", res.sum))
	}
	c.notify(snap)
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	e, ok := c.sel.Entry()
	return Snapshot{
		State:       c.state,
		Catalog:     c.catalog.Entries(),
		Entry:       e,
		HasEntry:    ok,
		Document:    c.sel.Document(),
		Title:       c.title,
		Description: c.description,
		Usage:       c.usage,
		Body:        c.body,
		Message:     c.message,
		Checksum:    c.sum,
		RepoURL:     locator.RepositoryURL(c.host),
		Seq:         c.seq,
	}
}

// View renders the current state.
func (c *Controller) View() View {
	return Render(c.Snapshot())
}

// Wait blocks until every load started so far has completed.
func (c *Controller) Wait() {
	c.loads.Wait()
}

// Close cancels outstanding loads and waits for them to finish.
func (c *Controller) Close() {
	c.cancel()
	c.loads.Wait()
}

func (c *Controller) notify(s Snapshot) {
	if c.onChange != nil {
		c.onChange(s)
	}
}
