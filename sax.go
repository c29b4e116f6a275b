package xsd

import "github.com/agentflare-ai/go-xmldom"

// Locator reports the source position of the event currently being
// processed, the way an XML parser's SAX locator tracks line/column as
// it scans. A ValidatorContext with no locator installed stamps every
// Violation with Line == 0, Column == 0.
type Locator interface {
	Line() int
	Column() int
	SystemID() string
}

// SAXPlug receives a copy of every start/text/end event a
// ValidatorContext's core processes, mirroring libxml2's pattern of
// chaining a second SAX handler behind the one doing validation: a
// caller can plug in a document builder, a logger, or a forwarding
// handler to another consumer without the validator itself knowing
// anything about it. Errors returned are not surfaced back to the
// validation run; SAXPlug is an observer, not a veto.
type SAXPlug interface {
	StartElement(elem xmldom.Element) error
	Characters(data string) error
	EndElement() error
}
