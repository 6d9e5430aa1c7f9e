package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// extractWord pulls the raw text out of a Word document. Modern documents are
// OPC zip containers holding word/document.xml; legacy .doc binaries are not,
// and surface as a parse error so the caller skips the document.
func extractWord(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("word container: %w", err)
	}

	var docXML io.ReadCloser
	for _, f := range reader.File {
		if f.Name == "word/document.xml" {
			docXML, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("word document part: %w", err)
			}
			break
		}
	}
	if docXML == nil {
		return "", fmt.Errorf("word container: missing document part")
	}
	defer docXML.Close()

	return wordXMLText(docXML)
}

// wordXMLText walks WordprocessingML, collecting run text and turning
// paragraph ends into newlines.
func wordXMLText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var (
		sb     strings.Builder
		inText bool
	)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("word xml: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			case "tab":
				sb.WriteString(" ")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}

	return sb.String(), nil
}
