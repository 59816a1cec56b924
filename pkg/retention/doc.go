// Package retention purges stale timeout protection state on a cron schedule.
//
// Strategies already purge on every new completed response; the scheduler
// covers quiet periods in which no new response arrives to trigger a purge.
package retention
