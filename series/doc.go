// Package series defines the value types exchanged with a SensorCloud channel:
// time-series points, histograms, sample rates and the partitions they are
// stored in.
//
// Timestamps are unsigned nanoseconds since the Unix epoch. Values are
// immutable once constructed; Histogram copies its bins on construction.
//
// A channel stores data in partitions. A time-series partition is identified by
// its sample rate, a histogram partition by its sample rate and bin shape. The
// canonical string form of that identity is the partition descriptor:
//
//	series.TimeSeriesDescriptor(series.Hertz(10))
//	    // "10 hertz"
//	series.HistogramDescriptor(series.Hertz(10), series.HistogramShape{BinStart: 0, BinSize: 1, NumBins: 2})
//	    // "10 hertz_0.000000e+00_1.000000e+00_2"
package series
