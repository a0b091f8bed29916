package topology

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/osg-htc/osg-reports/internal/domain/entity"
)

// Every element below is optional in practice; pointers keep "absent"
// distinguishable and text() maps absent to "".

type rgSummary struct {
	ResourceGroups []xmlResourceGroup `xml:"ResourceGroup"`
}

type xmlResourceGroup struct {
	GroupName *string       `xml:"GroupName"`
	Facility  *xmlNamed     `xml:"Facility"`
	Site      *xmlNamed     `xml:"Site"`
	Resources *xmlResources `xml:"Resources"`
}

type xmlNamed struct {
	Name *string `xml:"Name"`
}

type xmlResources struct {
	Resource []xmlResource `xml:"Resource"`
}

type xmlResource struct {
	Name     *string      `xml:"Name"`
	FQDN     *string      `xml:"FQDN"`
	Tags     *xmlTags     `xml:"Tags"`
	Services *xmlServices `xml:"Services"`
}

type xmlTags struct {
	Tag []*string `xml:"Tag"`
}

type xmlServices struct {
	Service []xmlNamed `xml:"Service"`
}

func text(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func (n *xmlNamed) name() string {
	if n == nil {
		return ""
	}
	return text(n.Name)
}

// Decode reads an rgsummary document.
func Decode(r io.Reader) ([]entity.ResourceGroup, error) {
	var doc rgSummary
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("error parsing topology XML: %w", err)
	}

	groups := make([]entity.ResourceGroup, 0, len(doc.ResourceGroups))
	for _, rg := range doc.ResourceGroups {
		group := entity.ResourceGroup{
			Name:     text(rg.GroupName),
			Facility: rg.Facility.name(),
			Site:     rg.Site.name(),
		}
		if rg.Resources != nil {
			for _, res := range rg.Resources.Resource {
				group.Resources = append(group.Resources, convertResource(res))
			}
		}
		groups = append(groups, group)
	}
	return groups, nil
}

func convertResource(res xmlResource) entity.Resource {
	out := entity.Resource{
		Name: text(res.Name),
		FQDN: text(res.FQDN),
	}
	if res.Tags != nil {
		for _, tag := range res.Tags.Tag {
			if t := text(tag); t != "" {
				out.Tags = append(out.Tags, t)
			}
		}
	}
	if res.Services != nil {
		for i := range res.Services.Service {
			if s := res.Services.Service[i].name(); s != "" {
				out.Services = append(out.Services, s)
			}
		}
	}
	return out
}
