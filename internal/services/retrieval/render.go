package retrieval

import (
	"fmt"
	"strings"

	"github.com/ternarybob/maestro/internal/models"
)

// NothingFound is returned to the oracle when no passage could be retrieved
const NothingFound = "Nothing found"

const renderHeading = "The following is a list of pages that may be relevant to the query:"

// Render formats a retrieval result as a heading per page followed by its blocks
func Render(result *models.RetrievalResult) string {
	if result.IsEmpty() {
		return NothingFound
	}

	var sb strings.Builder
	sb.WriteString(renderHeading)
	for _, page := range result.Pages {
		sb.WriteString(fmt.Sprintf("\n# Page %d\n", page.SourcePage))
		sb.WriteString(strings.Join(page.Blocks, "\n"))
	}
	return sb.String()
}
