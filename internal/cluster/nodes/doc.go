package nodes

/*
Cluster membership is handled with two distinct parts:
- nodes.NodePicker which is notified of changes to the node list, and returns a single node given a requested key.
- nodes.NodeTracker which performs discovery, and informs a NodePicker of updates.

The discovery tracker asks EC2 for the current peers on a fixed interval.  A single run never retries, so the
tracker is the layer that retries failed runs with a backoff policy before giving up until the next interval.

The NodeTracker is responsible for not adding duplicates, or removing node twice, so technically it is the source of
truth.
*/
