// ABOUTME: Wire types for the Graph site, list, column, drive, and upload resources
// ABOUTME: Only the fields the submission core reads or writes are decoded
package graph

// Collection is a paged Graph response.
type Collection[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink,omitempty"`
}

// Site is a collaboration site.
type Site struct {
	ID             string          `json:"id"`
	Name           string          `json:"name,omitempty"`
	DisplayName    string          `json:"displayName,omitempty"`
	WebURL         string          `json:"webUrl,omitempty"`
	SiteCollection *SiteCollection `json:"siteCollection,omitempty"`
}

// SiteCollection carries the hostname of the owning site collection.
type SiteCollection struct {
	Hostname string `json:"hostname"`
}

// Hostname returns the site-collection hostname, or "" when absent.
func (s Site) Hostname() string {
	if s.SiteCollection == nil {
		return ""
	}
	return s.SiteCollection.Hostname
}

// List is a structured list within a site.
type List struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl,omitempty"`
}

// Column is a list column definition. Exactly one type facet is normally populated.
type Column struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	ReadOnly    bool   `json:"readOnly"`
	Hidden      bool   `json:"hidden"`
	Required    bool   `json:"required,omitempty"`

	HyperlinkOrPicture *HyperlinkOrPictureColumn `json:"hyperlinkOrPicture,omitempty"`
	Text               *TextColumn               `json:"text,omitempty"`
	Number             *NumberColumn             `json:"number,omitempty"`
	DateTime           *DateTimeColumn           `json:"dateTime,omitempty"`
	Boolean            *BooleanColumn            `json:"boolean,omitempty"`
	Choice             *ChoiceColumn             `json:"choice,omitempty"`
	Lookup             *LookupColumn             `json:"lookup,omitempty"`
}

type HyperlinkOrPictureColumn struct {
	IsPicture bool `json:"isPicture"`
}

type TextColumn struct {
	AllowMultipleLines bool `json:"allowMultipleLines,omitempty"`
	MaxLength          int  `json:"maxLength,omitempty"`
}

type NumberColumn struct {
	DecimalPlaces string `json:"decimalPlaces,omitempty"`
	DisplayAs     string `json:"displayAs,omitempty"`
}

type DateTimeColumn struct {
	DisplayAs string `json:"displayAs,omitempty"`
	Format    string `json:"format,omitempty"`
}

type BooleanColumn struct{}

// ChoiceColumn lists the configured choices. DisplayAs "checkBoxes" allows several
// selections per item.
type ChoiceColumn struct {
	AllowTextEntry bool     `json:"allowTextEntry,omitempty"`
	Choices        []string `json:"choices"`
	DisplayAs      string   `json:"displayAs,omitempty"`
}

type LookupColumn struct {
	ListID              string `json:"listId,omitempty"`
	ColumnName          string `json:"columnName,omitempty"`
	AllowMultipleValues bool   `json:"allowMultipleValues,omitempty"`
}

// Drive is a file store within a site.
type Drive struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl,omitempty"`
}

// DriveTypeDocumentLibrary marks a SharePoint document library.
const DriveTypeDocumentLibrary = "documentLibrary"

// DriveItem is a file or folder.
type DriveItem struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Size            int64            `json:"size,omitempty"`
	WebURL          string           `json:"webUrl,omitempty"`
	Folder          *FolderFacet     `json:"folder,omitempty"`
	File            *FileFacet       `json:"file,omitempty"`
	ParentReference *ParentReference `json:"parentReference,omitempty"`
}

type FolderFacet struct {
	ChildCount int `json:"childCount"`
}

type FileFacet struct {
	MimeType string `json:"mimeType,omitempty"`
}

type ParentReference struct {
	DriveID string `json:"driveId,omitempty"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path,omitempty"`
}

// UploadSession is a resumable upload session.
type UploadSession struct {
	UploadURL          string   `json:"uploadUrl"`
	ExpirationDateTime string   `json:"expirationDateTime,omitempty"`
	NextExpectedRanges []string `json:"nextExpectedRanges,omitempty"`
}

// ChunkResponse is the raw outcome of one byte-range PUT.
type ChunkResponse struct {
	StatusCode int
	Body       []byte
}

// ListItem is a created list record.
type ListItem struct {
	ID     string         `json:"id"`
	WebURL string         `json:"webUrl,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
}
