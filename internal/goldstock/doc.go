// Package goldstock fetches company pages from goldstockdata.com and extracts
// a structured record from each one.
//
// Pages live at <base>/company/<id>-. A 404, or a page without a usable
// company name, is reported as ErrNotFound; callers cache that as a durable
// negative. Any other failure is transient. Every request is preceded by a
// random politeness delay drawn from the configured range, so concurrent
// callers spread their load without a shared throttle.
package goldstock
