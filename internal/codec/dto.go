package codec

import (
	"fmt"
	"time"

	"github.com/jakoblorz/go-projectdoc/internal/models"
)

type header struct {
	Format   string       `yaml:"format"`
	Title    string       `yaml:"title"`
	Bindings []bindingDTO `yaml:"bindings,omitempty"`
}

type bindingDTO struct {
	LoaderType string            `yaml:"loader_type"`
	Label      string            `yaml:"label"`
	Priority   int               `yaml:"priority"`
	Enabled    bool              `yaml:"enabled"`
	Config     map[string]string `yaml:"config,omitempty"`
}

type body struct {
	Items   []itemDTO   `yaml:"items,omitempty"`
	Folders []folderDTO `yaml:"folders,omitempty"`
}

type folderDTO struct {
	Title     string      `yaml:"title"`
	CreatedAt time.Time   `yaml:"created_at,omitempty"`
	Items     []itemDTO   `yaml:"items,omitempty"`
	Folders   []folderDTO `yaml:"folders,omitempty"`
}

type itemDTO struct {
	ID      string            `yaml:"id"`
	Label   string            `yaml:"label"`
	Enabled bool              `yaml:"enabled"`
	Payload *payloadDTO       `yaml:"payload,omitempty"`
	Extra   map[string]string `yaml:"extra,omitempty"`
}

// payloadDTO is either a full payload or, when Ref is set, a reference to
// a payload written earlier in the file.
type payloadDTO struct {
	Ref        string            `yaml:"ref,omitempty"`
	ID         string            `yaml:"id,omitempty"`
	Version    string            `yaml:"version,omitempty"`
	Kind       string            `yaml:"kind,omitempty"`
	Attributes map[string]string `yaml:"attributes,omitempty"`
	Refs       []*payloadDTO     `yaml:"refs,omitempty"`
}

func bindingFrom(b *models.DataSourceBinding) bindingDTO {
	return bindingDTO{
		LoaderType: b.LoaderType,
		Label:      b.Label,
		Priority:   b.Priority,
		Enabled:    b.Enabled,
		Config:     b.Config,
	}
}

func (b bindingDTO) model() (*models.DataSourceBinding, error) {
	if b.LoaderType == "" {
		return nil, fmt.Errorf("binding %q has no loader_type", b.Label)
	}
	binding := models.NewDataSourceBinding(b.LoaderType, b.Label, b.Config, b.Priority)
	binding.Enabled = b.Enabled
	return binding, nil
}

// encoder writes each payload once; later occurrences become references
// so shared and cyclic graphs serialize finitely.
type encoder struct {
	seen map[*models.Payload]bool
}

func newEncoder() *encoder {
	return &encoder{seen: make(map[*models.Payload]bool)}
}

func (e *encoder) folders(folders []*models.Folder) []folderDTO {
	out := make([]folderDTO, 0, len(folders))
	for _, f := range folders {
		out = append(out, folderDTO{
			Title:     f.Title,
			CreatedAt: f.CreatedAt.UTC(),
			Items:     e.items(f.Items),
			Folders:   e.folders(f.Folders),
		})
	}
	return out
}

func (e *encoder) items(items []*models.ContentItem) []itemDTO {
	out := make([]itemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, itemDTO{
			ID:      item.ID,
			Label:   item.Label,
			Enabled: item.Enabled,
			Payload: e.payload(item.Payload),
			Extra:   item.Extra,
		})
	}
	return out
}

func (e *encoder) payload(p *models.Payload) *payloadDTO {
	if p == nil {
		return nil
	}
	if e.seen[p] {
		return &payloadDTO{Ref: p.Key()}
	}
	e.seen[p] = true

	dto := &payloadDTO{
		ID:         p.ID,
		Version:    p.Version,
		Kind:       p.Kind,
		Attributes: p.Attributes,
	}
	for _, ref := range p.Refs {
		dto.Refs = append(dto.Refs, e.payload(ref))
	}
	return dto
}

// decoder collects every full payload by key so references can be linked
// once the whole file is read.
type decoder struct {
	byKey   map[string]*models.Payload
	pending []pendingRef
}

type pendingRef struct {
	owner *models.Payload
	index int
	item  *models.ContentItem
	key   string
}

func newDecoder() *decoder {
	return &decoder{byKey: make(map[string]*models.Payload)}
}

func (d *decoder) folders(dtos []folderDTO) ([]*models.Folder, error) {
	out := make([]*models.Folder, 0, len(dtos))
	for _, dto := range dtos {
		f := models.NewFolder(dto.Title, dto.CreatedAt)
		var err error
		if f.Items, err = d.items(dto.Items); err != nil {
			return nil, err
		}
		if f.Folders, err = d.folders(dto.Folders); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (d *decoder) items(dtos []itemDTO) ([]*models.ContentItem, error) {
	out := make([]*models.ContentItem, 0, len(dtos))
	for _, dto := range dtos {
		if dto.ID == "" {
			return nil, fmt.Errorf("item %q has no id", dto.Label)
		}
		item := &models.ContentItem{
			ID:      dto.ID,
			Label:   dto.Label,
			Enabled: dto.Enabled,
			Extra:   dto.Extra,
		}
		if item.Extra == nil {
			item.Extra = map[string]string{}
		}
		if dto.Payload != nil {
			if dto.Payload.Ref != "" {
				d.pending = append(d.pending, pendingRef{item: item, key: dto.Payload.Ref})
			} else {
				item.Payload = d.payload(dto.Payload)
			}
		}
		out = append(out, item)
	}
	return out, nil
}

func (d *decoder) payload(dto *payloadDTO) *models.Payload {
	p := models.NewPayload(dto.ID, dto.Version, dto.Kind)
	p.Attributes = dto.Attributes
	if _, exists := d.byKey[p.Key()]; !exists {
		d.byKey[p.Key()] = p
	}
	for _, ref := range dto.Refs {
		if ref == nil {
			continue
		}
		if ref.Ref != "" {
			p.Refs = append(p.Refs, nil)
			d.pending = append(d.pending, pendingRef{owner: p, index: len(p.Refs) - 1, key: ref.Ref})
			continue
		}
		p.Refs = append(p.Refs, d.payload(ref))
	}
	return p
}

// link resolves references. A reference to a payload that was never
// written becomes a standalone payload parsed from the key.
func (d *decoder) link() {
	for _, ref := range d.pending {
		target, ok := d.byKey[ref.key]
		if !ok {
			target = payloadFromKey(ref.key)
			d.byKey[ref.key] = target
		}
		if ref.item != nil {
			ref.item.Payload = target
			continue
		}
		ref.owner.Refs[ref.index] = target
	}
}

func payloadFromKey(key string) *models.Payload {
	if id, version, ok := models.SplitCanonical(key); ok {
		return models.NewPayload(id, version, "")
	}
	return models.NewPayload(key, "", "")
}
