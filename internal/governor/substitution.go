package governor

import (
	"strings"

	"github.com/temirov/rgcopy/internal/mssql"
)

const (
	unicodeLiteralPrefixConstant = "N"
)

// SubstituteServerName rewrites quoted occurrences of the source server name
// inside scripted DDL so references resolve on the destination.
//
// Only bracket-quoted identifiers and single-quoted literals (including N''
// literals) are rewritten; bare substring hits inside unrelated identifiers
// are left alone.
func SubstituteServerName(script string, sourceServerName string, destinationServerName string) string {
	trimmedSourceName := strings.TrimSpace(sourceServerName)
	trimmedDestinationName := strings.TrimSpace(destinationServerName)
	if len(trimmedSourceName) == 0 || len(trimmedDestinationName) == 0 || trimmedSourceName == trimmedDestinationName {
		return script
	}

	quotedReplacer := strings.NewReplacer(
		mssql.QuoteIdentifier(trimmedSourceName), mssql.QuoteIdentifier(trimmedDestinationName),
		unicodeLiteralPrefixConstant+mssql.QuoteLiteral(trimmedSourceName), unicodeLiteralPrefixConstant+mssql.QuoteLiteral(trimmedDestinationName),
		mssql.QuoteLiteral(trimmedSourceName), mssql.QuoteLiteral(trimmedDestinationName),
	)

	return quotedReplacer.Replace(script)
}
