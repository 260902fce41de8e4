package sim

import (
	"strconv"
	"strings"
)

// NameMustBeValid panics if the name does not follow the naming convention.
// A name is a dot-separated hierarchy of elements, such as "Cache[1].BusPort".
// Each element is a capitalized CamelCase word, optionally followed by one or
// more integer indices in square brackets. Empty elements and the characters
// '_', '-', '"' and '\'' are not allowed.
func NameMustBeValid(name string) {
	for _, token := range strings.Split(name, ".") {
		if err := checkNameToken(token); err != "" {
			panic("Name " + name + " is not valid: " + err)
		}
	}
}

func checkNameToken(token string) string {
	elemName, indices, found := strings.Cut(token, "[")
	if elemName == "" {
		return "Name element must not be empty"
	}

	if strings.ContainsAny(elemName, "_\"'-]") {
		return "Name element must not contain _, -, quotes or brackets"
	}

	if elemName[0] < 'A' || elemName[0] > 'Z' {
		return "Name element must start with a capital letter"
	}

	if !found {
		return ""
	}

	return checkNameIndices("[" + indices)
}

func checkNameIndices(indices string) string {
	for len(indices) > 0 {
		if indices[0] != '[' {
			return "Name bracket must match"
		}

		end := strings.IndexByte(indices, ']')
		if end < 0 {
			return "Name bracket must match"
		}

		if _, err := strconv.Atoi(indices[1:end]); err != nil {
			return "Name index must be integer"
		}

		indices = indices[end+1:]
	}

	return ""
}

// BuildName builds a name from a parent name and an element name.
func BuildName(parentName, elementName string) string {
	if parentName == "" {
		return elementName
	}

	return parentName + "." + elementName
}

// BuildNameWithIndex builds a name from a parent name, an element name and an
// index.
func BuildNameWithIndex(parentName, elementName string, index int) string {
	return BuildName(parentName, elementName+"["+strconv.Itoa(index)+"]")
}
