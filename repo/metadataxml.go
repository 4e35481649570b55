package repo

import (
	"encoding/xml"
	"os"
)

// MetadataXML is the parsed form of a package's metadata.xml (GLEP 68),
// grounded on encoding/xml the way the teacher's schema package grounds
// its own wire format on generated structs: a plain tag-annotated
// struct tree, no hand-rolled tokenizer.
type MetadataXML struct {
	XMLName          xml.Name          `xml:"pkgmetadata"`
	Maintainers      []xmlMaintainer   `xml:"maintainer"`
	Upstream         *xmlUpstream      `xml:"upstream"`
	Use              xmlUse            `xml:"use"`
	LongDescriptions []xmlLongDesc     `xml:"longdescription"`
	StabilizeAllArch *struct{}         `xml:"stabilize-allarches"`
}

type xmlMaintainer struct {
	Type        string `xml:"type,attr"`
	Proxied     string `xml:"proxied,attr"`
	Email       string `xml:"email"`
	Name        string `xml:"name"`
	Description string `xml:"description"`
}

type xmlUpstream struct {
	RemoteIDs  []xmlRemoteID `xml:"remote-id"`
	Maintainer []struct {
		Status string `xml:"status,attr"`
		Text   string `xml:",chardata"`
	} `xml:"maintainer"`
	BugsTo    string `xml:"bugs-to"`
	Changelog string `xml:"changelog"`
	Doc       string `xml:"doc"`
}

type xmlRemoteID struct {
	Type string `xml:"type,attr"`
	ID   string `xml:",chardata"`
}

type xmlUse struct {
	Flags []xmlUseFlag `xml:"flag"`
}

type xmlUseFlag struct {
	Name        string `xml:"name,attr"`
	Description string `xml:",chardata"`
}

type xmlLongDesc struct {
	Lang string `xml:"lang,attr"`
	Text string `xml:",chardata"`
}

// ParseMetadataXML parses a metadata.xml document.
func ParseMetadataXML(data []byte) (*MetadataXML, error) {
	var m MetadataXML
	if err := xml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadMetadataXML reads and parses the metadata.xml at path.
func LoadMetadataXML(path string) (*MetadataXML, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseMetadataXML(data)
}

// LongDescriptionEN returns the lang="en" <longdescription> text, the
// only language this package reads per spec.md §6.1.
func (m *MetadataXML) LongDescriptionEN() string {
	for _, d := range m.LongDescriptions {
		if d.Lang == "en" {
			return d.Text
		}
	}
	return ""
}

// maintainers converts the parsed XML maintainers into repo.Maintainer
// values for attachment to a Metadata record.
func (m *MetadataXML) maintainers() []Maintainer {
	out := make([]Maintainer, len(m.Maintainers))
	for i, x := range m.Maintainers {
		out[i] = Maintainer{Email: x.Email, Name: x.Name, Description: x.Description}
	}
	return out
}

// ApplyTo copies the metadata.xml-derived fields (long description,
// maintainers) onto meta, leaving every ebuild-sourced field untouched.
func (m *MetadataXML) ApplyTo(meta *Metadata) {
	if m == nil || meta == nil {
		return
	}
	meta.LongDescription = m.LongDescriptionEN()
	meta.Maintainers = m.maintainers()
}
