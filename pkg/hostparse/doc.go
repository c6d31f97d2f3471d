// Package hostparse parses the seed host list a client is configured
// with (spec §6): a comma-separated AEROSPIKE_HOSTS value, or an
// explicit slice, each entry of the form host[:tls-name][:port].
package hostparse
