/*
dto.go - Data Transfer Objects for the report API

PURPOSE:
  JSON structures returned to the reporting collaborator. These decouple
  the registry's internal model from the API contract, so construct
  documentation can gain fields without breaking notebook consumers.

NAMING CONVENTION:
  - *DTO: Response types returned to clients

SEE ALSO:
  - handlers.go: Uses these types
  - tidy/registry.go: The source model
*/
package api

import "github.com/tz5/results-engine/tidy"

// ItemDTO documents one survey item.
type ItemDTO struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Phase    string `json:"phase"`
	Polarity string `json:"polarity"`
	Domain   string `json:"domain"`
	ScaleMin int    `json:"scale_min,omitempty"`
	ScaleMax int    `json:"scale_max,omitempty"`
}

// ConstructMemberDTO documents one item's role in a construct.
type ConstructMemberDTO struct {
	Item     string `json:"item"`
	Reversed bool   `json:"reversed"`
	Negated  bool   `json:"negated,omitempty"`
	Weight   string `json:"weight,omitempty"`
}

// ConstructDTO is the construct-mapping documentation record: the same
// information the paper's construct table prints, served machine-readable
// so captions and composites can never drift apart.
type ConstructDTO struct {
	ID             string               `json:"id"`
	Formula        string               `json:"formula"`
	Interpretation string               `json:"interpretation,omitempty"`
	Members        []ConstructMemberDTO `json:"members"`
}

// TableDTO lists one published table.
type TableDTO struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

func itemDTO(def tidy.ItemDefinition) ItemDTO {
	return ItemDTO{
		ID:       string(def.ID),
		Label:    def.Label,
		Phase:    string(def.Phase),
		Polarity: string(def.Polarity),
		Domain:   string(def.Domain),
		ScaleMin: def.ScaleMin,
		ScaleMax: def.ScaleMax,
	}
}

func constructDTO(def tidy.ConstructDefinition) ConstructDTO {
	dto := ConstructDTO{
		ID:             string(def.ID),
		Formula:        string(def.Formula),
		Interpretation: def.Interpretation,
		Members:        make([]ConstructMemberDTO, 0, len(def.Members)),
	}
	for _, m := range def.Members {
		member := ConstructMemberDTO{
			Item:     string(m.Item),
			Reversed: m.Reversed,
			Negated:  m.Negated,
		}
		if !m.Weight.IsZero() {
			member.Weight = m.Weight.String()
		}
		dto.Members = append(dto.Members, member)
	}
	return dto
}
