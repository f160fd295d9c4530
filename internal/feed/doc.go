// Package feed models the remote catalog snapshot and loads it through a
// cache-first Retriever: one HTML page whose embedded JSON carries the platform
// order and the "newly added" subset, plus sequential chunk pages that make up
// the standard product list. Fields whose wire shape varies are decoded into
// explicit tagged unions (MarketingBlurb, Publishers).
package feed
