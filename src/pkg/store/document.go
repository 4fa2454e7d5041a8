package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tuumbleweed/xerr"

	"price-catalog/src/pkg/catalog"
)

/*
encodeDocument renders entries as one flat JSON object, {"item": "price", ...},
keeping the catalog order. encoding/json sorts map keys, so members are written
one by one.
*/
func encodeDocument(entries []catalog.Entry) (document []byte, e *xerr.Error) {
	var buffer bytes.Buffer
	if len(entries) == 0 {
		return []byte("{}\n"), e
	}

	buffer.WriteString("{\n")
	for i, entry := range entries {
		keyBytes, keyErr := json.Marshal(entry.Key)
		if keyErr != nil {
			e = xerr.NewError(keyErr, "marshal catalog key", entry.Key)
			return nil, e
		}
		priceBytes, priceErr := json.Marshal(entry.RawPrice)
		if priceErr != nil {
			e = xerr.NewError(priceErr, "marshal catalog price", entry.Key)
			return nil, e
		}

		buffer.WriteString("    ")
		buffer.Write(keyBytes)
		buffer.WriteString(": ")
		buffer.Write(priceBytes)
		if i < len(entries)-1 {
			buffer.WriteString(",")
		}
		buffer.WriteString("\n")
	}
	buffer.WriteString("}\n")

	return buffer.Bytes(), e
}

// decodeDocument reads a flat JSON object back into entries, in document order.
func decodeDocument(document []byte) (entries []catalog.Entry, e *xerr.Error) {
	entries = make([]catalog.Entry, 0)
	if len(bytes.TrimSpace(document)) == 0 {
		return entries, e
	}

	decoder := json.NewDecoder(bytes.NewReader(document))
	openToken, tokenErr := decoder.Token()
	if tokenErr != nil {
		e = xerr.NewError(tokenErr, "read catalog document", "opening token")
		return nil, e
	}
	if delim, ok := openToken.(json.Delim); !ok || delim != '{' {
		e = xerr.NewError(fmt.Errorf("expected a JSON object, got '%v'", openToken), "read catalog document", "opening token")
		return nil, e
	}

	for decoder.More() {
		keyToken, keyErr := decoder.Token()
		if keyErr != nil {
			e = xerr.NewError(keyErr, "read catalog key", len(entries))
			return nil, e
		}
		key, _ := keyToken.(string)

		var rawPrice string
		valueErr := decoder.Decode(&rawPrice)
		if valueErr != nil {
			e = xerr.NewError(valueErr, "read catalog price", key)
			return nil, e
		}

		entries = append(entries, catalog.Entry{Key: key, RawPrice: rawPrice})
	}

	return entries, e
}
