package traces

// Window returns the partial groups visible on the given page. Rows are
// counted across the virtual concatenation of all groups in order; each
// returned group keeps its keys and only the records falling inside
// [(page-1)*rowsPerPage, page*rowsPerPage). A rowsPerPage of zero means
// unlimited and returns groups unchanged.
//
// The input groups are not modified. Returned groups share the underlying
// record storage, which is safe because records are immutable.
func Window(groups []Group, page, rowsPerPage int) []Group {
	if rowsPerPage <= 0 {
		return groups
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * rowsPerPage
	end := start + rowsPerPage
	cursor := 0
	var result []Group

	for _, group := range groups {
		length := len(group.Records)
		if cursor+length <= start {
			cursor += length
			continue
		}
		if cursor >= end {
			break
		}

		lo := max(0, start-cursor)
		hi := min(length, end-cursor)
		partial := group
		partial.Records = group.Records[lo:hi:hi]
		partial.Total = hi - lo
		result = append(result, partial)

		cursor += length
		if cursor >= end {
			break
		}
	}
	return result
}

// PageCount returns how many pages total rows occupy at rowsPerPage. An
// unlimited page size always yields a single page.
func PageCount(total, rowsPerPage int) int {
	if rowsPerPage <= 0 || total <= 0 {
		return 1
	}
	return (total + rowsPerPage - 1) / rowsPerPage
}
