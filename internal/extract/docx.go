package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	docxBodyPart = "word/document.xml"

	// docxExpansion bounds the inflated body part relative to the upload cap.
	docxExpansion = 10
)

// extractDOCX reads the main document part of an Office Open XML file and
// returns its paragraphs separated by line breaks. The body part may inflate
// to at most maxPart bytes.
func extractDOCX(data []byte, maxPart int64) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open docx archive: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", errors.New("missing " + docxBodyPart)
	}

	if part.UncompressedSize64 > uint64(maxPart) {
		return "", fmt.Errorf("%s expands beyond %d bytes", docxBodyPart, maxPart)
	}
	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", docxBodyPart, err)
	}
	defer rc.Close()

	body, err := io.ReadAll(io.LimitReader(rc, maxPart+1))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", docxBodyPart, err)
	}
	if int64(len(body)) > maxPart {
		return "", fmt.Errorf("%s expands beyond %d bytes", docxBodyPart, maxPart)
	}
	return wordprocessingText(bytes.NewReader(body))
}

// wordprocessingText walks WordprocessingML and keeps the text runs.
func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var (
		sb     strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse document xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteByte('\t')
			case "br", "cr":
				sb.WriteByte('\n')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}
