package autodesk

import (
	"time"

	"github.com/custodia-labs/filebridge/internal/core/domain"
)

// The Data Management API speaks JSON:API. Listing responses carry the
// folder's items in data and their tip versions in included; the tip
// version holds the storage size and file type the item itself omits.

type contentsPage struct {
	Links    pageLinks  `json:"links"`
	Data     []resource `json:"data"`
	Included []resource `json:"included"`
}

type itemResponse struct {
	Data     resource   `json:"data"`
	Included []resource `json:"included"`
}

type pageLinks struct {
	Next *hrefLink `json:"next"`
}

type hrefLink struct {
	Href string `json:"href"`
}

func (l pageLinks) nextHref() string {
	if l.Next == nil {
		return ""
	}
	return l.Next.Href
}

type resource struct {
	Type          string             `json:"type"`
	ID            string             `json:"id"`
	Attributes    resourceAttributes `json:"attributes"`
	Links         resourceLinks      `json:"links"`
	Relationships relationships      `json:"relationships"`
}

type resourceAttributes struct {
	DisplayName      string    `json:"displayName"`
	CreateTime       time.Time `json:"createTime"`
	LastModifiedTime time.Time `json:"lastModifiedTime"`
	StorageSize      int64     `json:"storageSize"`
	FileType         string    `json:"fileType"`
	Extension        extension `json:"extension"`
}

type extension struct {
	Type string `json:"type"`
}

type resourceLinks struct {
	WebView *hrefLink `json:"webView"`
}

type relationships struct {
	Tip relationship `json:"tip"`
}

type relationship struct {
	Data relationshipData `json:"data"`
}

type relationshipData struct {
	ID string `json:"id"`
}

// indexVersions maps included version resources by their URN so items
// can be joined to their tip version.
func indexVersions(included []resource) map[string]resource {
	if len(included) == 0 {
		return nil
	}
	out := make(map[string]resource, len(included))
	for _, res := range included {
		out[res.ID] = res
	}
	return out
}

// toMetadata converts an item resource and its tip version into the
// vendor-neutral form.
func toMetadata(item resource, versions map[string]resource) domain.FileMetadata {
	meta := domain.FileMetadata{
		ExternalID:        item.ID,
		Name:              item.Attributes.DisplayName,
		ExternalCreatedAt: item.Attributes.CreateTime,
		ExternalUpdatedAt: item.Attributes.LastModifiedTime,
	}
	if item.Links.WebView != nil {
		meta.Link = item.Links.WebView.Href
	}
	vendor := make(map[string]string)
	if item.Attributes.Extension.Type != "" {
		vendor["extension_type"] = item.Attributes.Extension.Type
	}

	if tip, ok := versions[item.Relationships.Tip.Data.ID]; ok {
		meta.Size = tip.Attributes.StorageSize
		if tip.Attributes.FileType != "" {
			vendor["file_type"] = tip.Attributes.FileType
		}
		if meta.Name == "" {
			meta.Name = tip.Attributes.DisplayName
		}
	}
	if len(vendor) > 0 {
		meta.Vendor = vendor
	}
	return meta
}
