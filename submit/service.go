// ABOUTME: Submission orchestrator turning one report into exactly one list record
// ABOUTME: Resolve, introspect, select fields, upload photos in order, then create the item
package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iTRMAutomation/mlc-village-recon-tool/config"
	"github.com/iTRMAutomation/mlc-village-recon-tool/graph"
	"github.com/iTRMAutomation/mlc-village-recon-tool/models"
	"github.com/iTRMAutomation/mlc-village-recon-tool/resolve"
	"github.com/iTRMAutomation/mlc-village-recon-tool/schema"
	"github.com/iTRMAutomation/mlc-village-recon-tool/session"
	"github.com/iTRMAutomation/mlc-village-recon-tool/upload"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// API is everything the orchestrator needs from the remote. *graph.Client satisfies it.
type API interface {
	resolve.API
	schema.ColumnsAPI
	upload.API
	Prober
	CreateListItem(ctx context.Context, siteID, listID string, fields map[string]any) (*graph.ListItem, error)
}

// Result describes a created record.
type Result struct {
	SubmissionID string            `json:"submission_id"`
	ItemID       string            `json:"item_id"`
	WebURL       string            `json:"web_url,omitempty"`
	Fields       map[string]any    `json:"fields"`
	Photos       []upload.Uploaded `json:"photos"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// Options configures a Service.
type Options struct {
	Logger *zap.Logger
	Cache  *session.Cache
	Now    func() time.Time
	// SignOut, when set, is called by Service.SignOut after the cache is invalidated.
	SignOut func() error
	// Upload overrides the engine options; Location and Logger default to the service's.
	Upload upload.Options
}

// Service runs submissions against one configured site.
type Service struct {
	cfg      *config.Config
	api      API
	resolver *resolve.Resolver
	engine   *upload.Engine
	cache    *session.Cache
	log      *zap.Logger
	now      func() time.Time
	signOut  func() error
}

// New creates a Service. cfg must already be validated.
func New(cfg *config.Config, api API, opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := opts.Cache
	if cache == nil {
		cache = session.New()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	uploadOpts := opts.Upload
	if uploadOpts.Location == nil {
		uploadOpts.Location = cfg.Location()
	}
	if uploadOpts.Logger == nil {
		uploadOpts.Logger = logger.Named("upload")
	}
	if uploadOpts.Now == nil {
		uploadOpts.Now = now
	}

	return &Service{
		cfg:      cfg,
		api:      api,
		resolver: resolve.New(api, logger.Named("resolve")),
		engine:   upload.NewEngine(api, uploadOpts),
		cache:    cache,
		log:      logger,
		now:      now,
		signOut:  opts.SignOut,
	}
}

// Cache returns the session cache.
func (s *Service) Cache() *session.Cache {
	return s.cache
}

// fieldPlan maps logical fields to selected internal names.
type fieldPlan struct {
	title, category, location, notes, capturedOn, photos string
}

// Submit runs one submission. trace may be nil. Any step's failure aborts the rest;
// photos already uploaded are left in place.
func (s *Service) Submit(ctx context.Context, report *models.Report, trace *Trace) (*Result, error) {
	if trace == nil {
		trace = NewTrace(s.log, nil)
	}
	if err := report.Validate(); err != nil {
		trace.Errorf("report rejected: %v", err)
		return nil, err
	}

	id := ulid.Make().String()
	trace.Infof("submission %s started with %d photo(s)", id, len(report.Photos))

	for _, probe := range s.Probe(ctx) {
		if probe.Reachable {
			trace.Infof("probe %s reachable (status %d, %s)", probe.Name, probe.Status, probe.Elapsed.Round(time.Millisecond))
		} else {
			trace.Warnf("probe %s unreachable at %s: %s", probe.Name, probe.Endpoint, probe.Error)
		}
	}

	res, sch, err := s.load(ctx, s.cache.Generation(), trace)
	if err != nil {
		trace.Errorf("%v", err)
		return nil, err
	}

	plan, err := s.plan(sch, trace)
	if err != nil {
		trace.Errorf("%v", err)
		return nil, err
	}

	uploaded := make([]upload.Uploaded, 0, len(report.Photos))
	urls := make([]string, 0, len(report.Photos))
	for i, photo := range report.Photos {
		trace.Infof("uploading photo %d/%d %s (%d bytes)", i+1, len(report.Photos), photo.Name, photo.Size())
		up, err := s.engine.Upload(ctx, res.DriveID, s.cfg.BaseFolder, photo, report.Location)
		if err != nil {
			trace.Errorf("upload of %s failed: %v", photo.Name, err)
			return nil, err
		}
		mode := "single request"
		if up.Chunked {
			mode = fmt.Sprintf("%d chunks", s.engine.ChunkCount(up.Size))
		}
		trace.Infof("stored %s (%s)", up.RemotePath, mode)
		uploaded = append(uploaded, *up)
		urls = append(urls, up.URL)
	}

	fields, err := s.payload(report, sch, plan, urls, trace)
	if err != nil {
		trace.Errorf("%v", err)
		return nil, err
	}

	trace.Infof("creating list item with %d field(s)", countValues(fields))
	item, err := s.api.CreateListItem(ctx, res.Site.ID, res.ListID, fields)
	if err != nil {
		trace.Errorf("create list item failed: %v", err)
		return nil, err
	}
	trace.Infof("created item %s", item.ID)

	s.log.Info("report submitted",
		zap.String("submission_id", id),
		zap.String("item_id", item.ID),
		zap.Int("photos", len(uploaded)),
	)

	return &Result{
		SubmissionID: id,
		ItemID:       item.ID,
		WebURL:       item.WebURL,
		Fields:       fields,
		Photos:       uploaded,
		Warnings:     trace.Warnings(),
	}, nil
}

// load returns resolved resources and the list schema, filling the cache under gen.
func (s *Service) load(ctx context.Context, gen uint64, trace *Trace) (session.Resources, *schema.Schema, error) {
	res, ok := s.cache.Resources()
	if ok {
		trace.Infof("using cached site %s, list %s, drive %s", res.Site.ID, res.ListID, res.DriveID)
	} else {
		var err error
		res, err = s.resolve(ctx, trace)
		if err != nil {
			return session.Resources{}, nil, err
		}
		if !s.cache.StoreResources(gen, res) {
			s.log.Debug("discarding resolved resources from a stale session")
		}
	}

	sch, ok := s.cache.Schema()
	if ok {
		return res, sch, nil
	}
	sch, err := schema.Introspect(ctx, s.api, res.Site.ID, res.ListID)
	if err != nil {
		return session.Resources{}, nil, err
	}
	trace.Infof("discovered %d column(s)", len(sch.Order))
	if !s.cache.StoreSchema(gen, sch) {
		s.log.Debug("discarding schema from a stale session")
	}
	return res, sch, nil
}

func (s *Service) resolve(ctx context.Context, trace *Trace) (session.Resources, error) {
	site, err := s.resolver.Site(ctx, s.cfg.SiteHostname, s.cfg.SitePath)
	if err != nil {
		return session.Resources{}, err
	}
	trace.Infof("resolved site %s", site.ID)

	listID, err := s.resolver.List(ctx, site.ID, s.cfg.List)
	if err != nil {
		return session.Resources{}, err
	}
	trace.Infof("resolved list %q to %s", s.cfg.List, listID)

	driveID, err := s.resolver.Drive(ctx, site.ID, s.cfg.Drive)
	if err != nil {
		return session.Resources{}, err
	}
	trace.Infof("resolved drive %q to %s", s.cfg.Drive, driveID)

	return session.Resources{Site: *site, ListID: listID, DriveID: driveID}, nil
}

func (s *Service) plan(sch *schema.Schema, trace *Trace) (fieldPlan, error) {
	writable := schema.SelectOptions{RequireWritable: true}
	pick := func(logical string, candidates []string) string {
		name, ok := sch.Select(candidates, writable)
		if !ok {
			trace.Infof("no writable column for %s (tried %s); skipping", logical, strings.Join(candidates, ", "))
			return ""
		}
		return name
	}

	f := s.cfg.Fields
	photos, ok := sch.Select(f.Photos, writable)
	if !ok {
		return fieldPlan{}, &config.ConfigurationError{
			Field:  "fields.photos",
			Reason: fmt.Sprintf("no writable photo column found; tried %s", strings.Join(f.Photos, ", ")),
		}
	}

	return fieldPlan{
		title:      pick(models.FieldTitle, f.Title),
		category:   pick(models.FieldCategory, f.Category),
		location:   pick(models.FieldLocation, f.Location),
		notes:      pick(models.FieldNotes, f.Notes),
		capturedOn: pick(models.FieldCapturedOn, f.CapturedOn),
		photos:     photos,
	}, nil
}

func (s *Service) payload(report *models.Report, sch *schema.Schema, plan fieldPlan, urls []string, trace *Trace) (map[string]any, error) {
	fields := make(map[string]any)
	loc := s.cfg.Location()

	photoCol, _ := sch.Column(plan.photos)
	photoValue, err := FormatPhotos(photoCol.Kind, urls)
	if err != nil {
		return nil, err
	}
	fields[plan.photos] = photoValue

	notes := report.Notes
	if photoCol.Kind == schema.KindSingleLinkOrMedia && len(urls) > 1 {
		extra := urls[1:]
		if plan.notes != "" {
			notes = appendPhotoLinks(notes, extra)
		} else {
			trace.Warnf("%d additional photo URL(s) not recorded: column %s holds one link and no notes column exists", len(extra), plan.photos)
		}
	}

	// Captured-on is stored as a UTC instant whatever the column kind.
	capturedOn := ""
	if strings.TrimSpace(report.CapturedOn) == "" {
		capturedOn = Instant(s.now())
	} else if t, err := ParseLocal(report.CapturedOn, loc); err != nil {
		trace.Warnf("captured-on: %v; field skipped", err)
	} else {
		capturedOn = Instant(t)
	}

	for _, field := range []struct {
		column string
		value  string
	}{
		{plan.title, report.Title},
		{plan.category, report.Category},
		{plan.location, report.Location},
		{plan.notes, notes},
		{plan.capturedOn, capturedOn},
	} {
		if field.column == "" || strings.TrimSpace(field.value) == "" {
			continue
		}
		if _, taken := fields[field.column]; taken {
			trace.Warnf("column %s already holds another field; %q not written", field.column, field.value)
			continue
		}
		col, _ := sch.Column(field.column)
		values, warnings := formatField(col, field.value, loc)
		for _, w := range warnings {
			trace.Warnf("%s", w)
		}
		for k, v := range values {
			fields[k] = v
		}
	}

	return fields, nil
}

func appendPhotoLinks(notes string, urls []string) string {
	var b strings.Builder
	b.WriteString(strings.TrimRight(notes, "\n "))
	if b.Len() > 0 {
		b.WriteString("\n\n")
	}
	b.WriteString("Additional photos:")
	for _, u := range urls {
		b.WriteString("\n")
		b.WriteString(u)
	}
	return b.String()
}

// countValues counts payload values, ignoring OData annotations.
func countValues(fields map[string]any) int {
	n := 0
	for k := range fields {
		if !strings.Contains(k, "@odata.") {
			n++
		}
	}
	return n
}

// SignOut invalidates the session cache, then the credential collaborator.
func (s *Service) SignOut() error {
	s.cache.Invalidate()
	if s.signOut != nil {
		return s.signOut()
	}
	return nil
}

// IsFatalConfiguration reports whether err is a configuration or resolution failure the
// operator must fix before resubmitting.
func IsFatalConfiguration(err error) bool {
	var cfgErr *config.ConfigurationError
	var resErr *resolve.ResolutionError
	return errors.As(err, &cfgErr) || errors.As(err, &resErr)
}
