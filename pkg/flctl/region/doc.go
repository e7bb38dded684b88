// Package region maps organizations to the partitioned backend hosts serving
// them and routes org-scoped requests accordingly, falling back to the single
// configured host on self-hosted backends.
package region
