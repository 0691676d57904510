// Package scraper imports events from D-Event listing pages.
//
// Listing pages render each event as an .event-card element holding the
// category, title, date, location, price and image. The scraper fetches such
// a page over HTTP (or reads it from a file) and turns every card into an
// event.Event ready to be merged into storage. Display formats are converted
// back to stored ones: "Feb 15, 2025" becomes "2025-02-15", "Rp 1.500.000"
// becomes 1500000 and "FREE" becomes 0.
package scraper
